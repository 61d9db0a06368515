package ports

import (
	"context"
	"encoding/json"
	"time"

	"regwatch/internal/domain"
)

// FeedSource pulls fresh regulation candidates from upstream feeds.
type FeedSource interface {
	FetchCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// ListOptions narrows and orders the regulation listing.
type ListOptions struct {
	ImpactLevel string
	Search      string
	Sort        string // newest | impact | relevance
	Limit       int
	Offset      int
}

// RegulationRepository persists regulations and their action items.
type RegulationRepository interface {
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	Upsert(ctx context.Context, cand domain.Candidate) (domain.Regulation, error)
	GetByID(ctx context.Context, id int64) (*domain.RegulationWithItems, error)
	List(ctx context.Context, opts ListOptions) ([]domain.Regulation, int, error)
	UpdateRelevance(ctx context.Context, id int64, score int, reasoning string) error
	UpdateImpact(ctx context.Context, id int64, level domain.ImpactLevel, analysis json.RawMessage) error
	ReplaceActionItems(ctx context.Context, regulationID int64, items []domain.AnalysisActionItem) error
}

// AnalysisCache stores validated model responses keyed by
// (external id, stage). Writes are last-write-wins upserts.
type AnalysisCache interface {
	Get(ctx context.Context, externalID string, stage domain.CacheStage) (json.RawMessage, bool, error)
	Put(ctx context.Context, externalID string, stage domain.CacheStage, payload json.RawMessage) error
	Delete(ctx context.Context, externalID string) error
}

// Completer is the single text-completion operation the analysis stages
// depend on. Implementations classify their failures via llm.Error.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier pushes a digest of relevant regulations to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// StoreHealth exposes connectivity and row counts for the health endpoint.
type StoreHealth interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (regulations, cacheRows int64, err error)
}

// Scheduler controls when the monitoring pipeline executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
