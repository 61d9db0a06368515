package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"regwatch/internal/domain"
	"regwatch/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists regulations, action items and cached
// analysis payloads.
type PostgresRepository struct {
	db *sqlx.DB
}

var _ ports.RegulationRepository = (*PostgresRepository)(nil)
var _ ports.AnalysisCache = (*PostgresRepository)(nil)
var _ ports.StoreHealth = (*PostgresRepository)(nil)

// Connect opens and pings a Postgres connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Migrate applies pending schema migrations from the configured source.
func Migrate(db *sqlx.DB, sourceURL string, logger *slog.Logger) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "regwatch", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if logger != nil {
		logger.Info("migrations applied")
	}
	return nil
}

// NewPostgresRepository wires the sqlx handle.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ExistsByExternalID reports whether a regulation with the external id
// is already stored.
func (r *PostgresRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one,
		`SELECT 1 FROM regulations WHERE external_id = $1 LIMIT 1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists lookup: %w", err)
	}
	return true, nil
}

// Upsert inserts a candidate or refreshes title/description for an
// existing external id, leaving analysis columns untouched.
func (r *PostgresRepository) Upsert(ctx context.Context, cand domain.Candidate) (domain.Regulation, error) {
	var reg domain.Regulation

	query := `INSERT INTO regulations (title, description, source_url, published_date, external_id)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (external_id) DO UPDATE
              SET title = EXCLUDED.title,
                  description = EXCLUDED.description,
                  updated_at = NOW()
              RETURNING *`

	err := r.db.GetContext(ctx, &reg, query,
		cand.Title,
		cand.Description,
		cand.SourceURL,
		cand.PublishedDate,
		cand.ExternalID,
	)
	if err != nil {
		return reg, fmt.Errorf("upsert regulation: %w", err)
	}
	return reg, nil
}

// GetByID loads a regulation with its action items, or nil when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.RegulationWithItems, error) {
	var reg domain.Regulation
	err := r.db.GetContext(ctx, &reg, `SELECT * FROM regulations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get regulation: %w", err)
	}

	var items []domain.ActionItem
	err = r.db.SelectContext(ctx, &items,
		`SELECT * FROM action_items WHERE regulation_id = $1 ORDER BY priority, id`, id)
	if err != nil {
		return nil, fmt.Errorf("load action items: %w", err)
	}

	result := &domain.RegulationWithItems{Regulation: reg, ActionItems: items}
	if len(reg.FullAnalysis) > 0 {
		var parsed domain.FullAnalysis
		if err := json.Unmarshal(reg.FullAnalysis, &parsed); err == nil {
			result.ParsedAnalysis = &parsed
		}
	}
	return result, nil
}

// List returns a filtered, sorted page of regulations plus the unpaged
// total.
func (r *PostgresRepository) List(ctx context.Context, opts ports.ListOptions) ([]domain.Regulation, int, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	base := psql.Select("*").From("regulations")
	countQuery := psql.Select("COUNT(*)").From("regulations")

	if opts.ImpactLevel != "" && opts.ImpactLevel != "all" {
		cond := sq.Eq{"impact_level": opts.ImpactLevel}
		base = base.Where(cond)
		countQuery = countQuery.Where(cond)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		cond := sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		}
		base = base.Where(cond)
		countQuery = countQuery.Where(cond)
	}

	base = base.OrderBy(orderClause(opts.Sort)...).
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset))

	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count regulations: %w", err)
	}

	listSQL, listArgs, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	var regs []domain.Regulation
	if err := r.db.SelectContext(ctx, &regs, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list regulations: %w", err)
	}

	return regs, total, nil
}

func orderClause(sort string) []string {
	switch sort {
	case "impact":
		return []string{
			`CASE impact_level WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END ASC`,
			"published_date DESC",
		}
	case "relevance":
		return []string{"relevance_score DESC NULLS LAST", "published_date DESC"}
	default:
		return []string{"published_date DESC"}
	}
}

// UpdateRelevance fills the relevance columns and stamps analyzed_at.
func (r *PostgresRepository) UpdateRelevance(ctx context.Context, id int64, score int, reasoning string) error {
	query := `UPDATE regulations
              SET relevance_score = $2,
                  relevance_reasoning = $3,
                  analyzed_at = NOW(),
                  updated_at = NOW()
              WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, score, reasoning)
	if err != nil {
		return fmt.Errorf("update relevance: %w", err)
	}
	return requireRow(res, id)
}

// UpdateImpact fills the impact columns from a validated analysis payload.
func (r *PostgresRepository) UpdateImpact(ctx context.Context, id int64, level domain.ImpactLevel, analysis json.RawMessage) error {
	query := `UPDATE regulations
              SET impact_level = $2,
                  full_analysis = $3,
                  analyzed_at = NOW(),
                  updated_at = NOW()
              WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, level, []byte(analysis))
	if err != nil {
		return fmt.Errorf("update impact: %w", err)
	}
	return requireRow(res, id)
}

// ReplaceActionItems swaps the full action-item set for a regulation in
// one transaction, so a crash cannot leave the delete applied without
// the inserts.
func (r *PostgresRepository) ReplaceActionItems(ctx context.Context, regulationID int64, items []domain.AnalysisActionItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM action_items WHERE regulation_id = $1`, regulationID); err != nil {
		return fmt.Errorf("delete action items: %w", err)
	}

	for _, item := range items {
		priority := item.Priority
		if !priority.Valid() {
			priority = domain.PriorityMedium
		}

		var deadline *time.Time
		if item.Deadline != nil {
			if parsed, pErr := time.Parse("2006-01-02", *item.Deadline); pErr == nil {
				deadline = &parsed
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO action_items (regulation_id, department, action_description, deadline, priority, status)
             VALUES ($1, $2, $3, $4, $5, 'pending')`,
			regulationID, item.Department, item.Action, deadline, priority); err != nil {
			return fmt.Errorf("insert action item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Get returns the cached payload for (external id, stage), if any.
func (r *PostgresRepository) Get(ctx context.Context, externalID string, stage domain.CacheStage) (json.RawMessage, bool, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload,
		`SELECT response_data FROM analysis_cache WHERE external_id = $1 AND stage = $2`,
		externalID, stage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return json.RawMessage(payload), true, nil
}

// Put upserts the cached payload for (external id, stage),
// last-write-wins.
func (r *PostgresRepository) Put(ctx context.Context, externalID string, stage domain.CacheStage, payload json.RawMessage) error {
	query := `INSERT INTO analysis_cache (external_id, stage, response_data)
              VALUES ($1, $2, $3)
              ON CONFLICT (external_id, stage) DO UPDATE
              SET response_data = EXCLUDED.response_data,
                  created_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, externalID, stage, []byte(payload)); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete clears every cached stage for an external id.
func (r *PostgresRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM analysis_cache WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping verifies store connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Counts returns regulation and cache row totals for the health metric.
func (r *PostgresRepository) Counts(ctx context.Context) (int64, int64, error) {
	var regulations, cacheRows int64
	if err := r.db.GetContext(ctx, &regulations, `SELECT COUNT(*) FROM regulations`); err != nil {
		return 0, 0, fmt.Errorf("count regulations: %w", err)
	}
	if err := r.db.GetContext(ctx, &cacheRows, `SELECT COUNT(*) FROM analysis_cache`); err != nil {
		return 0, 0, fmt.Errorf("count cache rows: %w", err)
	}
	return regulations, cacheRows, nil
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("regulation %d not found", id)
	}
	return nil
}
