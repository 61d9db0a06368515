package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"regwatch/internal/config"
	"regwatch/internal/domain"
	"regwatch/internal/ports"
)

// RSSSource implements ports.FeedSource over one or more RSS/Atom feeds.
// Feeds are fetched in config order; a fetch failure fails the whole
// batch, which the caller treats as a no-op run.
type RSSSource struct {
	parser     *gofeed.Parser
	feeds      []config.FeedConfig
	normalizer *Normalizer
	logger     *slog.Logger
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource wires the gofeed parser with configured feeds and the
// keyword normalizer.
func NewRSSSource(client *http.Client, feeds []config.FeedConfig, normalizer *Normalizer, logger *slog.Logger) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "regwatch/1.0"

	return &RSSSource{
		parser:     parser,
		feeds:      feeds,
		normalizer: normalizer,
		logger:     logger,
	}
}

// FetchCandidates pulls every configured feed and returns the filtered,
// normalized candidates in feed order.
func (s *RSSSource) FetchCandidates(ctx context.Context) ([]domain.Candidate, error) {
	var aggregated []domain.Candidate

	for _, fc := range s.feeds {
		parsed, err := s.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch feed %s: %w", fc.Name, err)
		}

		entries := make([]Entry, 0, len(parsed.Items))
		for _, item := range parsed.Items {
			entry := Entry{
				Title:       item.Title,
				Link:        item.Link,
				GUID:        item.GUID,
				Description: item.Description,
			}
			if item.PublishedParsed != nil {
				entry.Published = item.PublishedParsed.UTC()
			}
			entries = append(entries, entry)
		}

		candidates := s.normalizer.Normalize(entries)
		s.debug("feed fetched", "feed", fc.Name, "items", len(parsed.Items), "matched", len(candidates))
		aggregated = append(aggregated, candidates...)
	}

	return aggregated, nil
}

func (s *RSSSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
