package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

// RefreshSummary describes a full refresh.
type RefreshSummary struct {
	Extract *ExtractSummary
	Indexes map[string]IndexResult
	Health  *search.Health
	Elapsed time.Duration
}

// RefreshService re-extracts the export and rebuilds every index.
type RefreshService struct {
	input     string
	extractor *ExtractService
	indexes   *IndexService
}

// NewRefreshService creates a RefreshService reading the export at input.
func NewRefreshService(input string, extractor *ExtractService, indexes *IndexService) *RefreshService {
	return &RefreshService{input: input, extractor: extractor, indexes: indexes}
}

// Refresh extracts the export and reindexes the collections in extraction
// order. An extraction failure stops before any index is touched. A failing
// collection does not stop the others; their errors are joined.
func (s *RefreshService) Refresh(ctx context.Context) (*RefreshSummary, error) {
	start := time.Now()
	summary := &RefreshSummary{Indexes: make(map[string]IndexResult, len(entities.Collections))}

	extracted, err := s.extractor.Extract(s.input)
	if err != nil {
		return summary, err
	}
	summary.Extract = extracted

	rebuild := ReindexActions()
	rebuild.Status = false

	var errs []error
	for _, name := range entities.Collections {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.indexes.Apply(ctx, name, rebuild)
		summary.Indexes[name] = result
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if health, err := loader.Health(ctx, s.indexes.indexes); err == nil {
		summary.Health = &health
	}

	summary.Elapsed = time.Since(start)
	log.Printf("[REFRESH] Refreshed %d collections in %s (%d failed)",
		len(entities.Collections), summary.Elapsed.Round(time.Millisecond), len(errs))
	return summary, errors.Join(errs...)
}
