package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

// IndexActions selects the lifecycle steps for one collection. Steps run
// in the order delete, create, index, status.
type IndexActions struct {
	Delete bool
	Create bool
	Index  bool
	Status bool
}

// ReindexActions drops and rebuilds an index, then reports cluster health.
func ReindexActions() IndexActions {
	return IndexActions{Delete: true, Create: true, Index: true, Status: true}
}

// Any reports whether at least one step is selected.
func (a IndexActions) Any() bool {
	return a.Delete || a.Create || a.Index || a.Status
}

// IndexResult reports what Apply did.
type IndexResult struct {
	Deleted bool
	Created bool
	Report  *loader.Report
	Health  *search.Health
}

// IndexService applies lifecycle steps to the index of a collection.
type IndexService struct {
	indexes IndexManager
	loader  CollectionLoader
}

// NewIndexService creates an IndexService.
func NewIndexService(indexes IndexManager, loader CollectionLoader) *IndexService {
	return &IndexService{indexes: indexes, loader: loader}
}

// Apply runs the selected steps for name. Deleting a missing index is not
// an error. Cluster health is advisory and never fails the call. When some
// batches fail the result still carries the report.
func (s *IndexService) Apply(ctx context.Context, name string, actions IndexActions) (IndexResult, error) {
	var result IndexResult

	if actions.Delete {
		log.Printf("[LOADER] Deleting index %s", name)
		err := s.indexes.DeleteIndex(ctx, name)
		switch {
		case errors.Is(err, search.ErrIndexNotFound):
			log.Printf("[LOADER] Index %s did not exist", name)
		case err != nil:
			return result, err
		default:
			result.Deleted = true
		}
	}

	if actions.Create {
		log.Printf("[LOADER] Creating index %s", name)
		if err := s.indexes.CreateIndex(ctx, name, search.DefaultIndexSpec(name)); err != nil {
			return result, err
		}
		result.Created = true
	}

	var loadErr error
	if actions.Index {
		report, err := s.loader.LoadCollection(ctx, name)
		if report.Run != nil {
			result.Report = &report
		}
		if err != nil {
			loadErr = fmt.Errorf("load %s: %w", name, err)
		}
	}

	if actions.Status {
		if health, err := loader.Health(ctx, s.indexes); err == nil {
			result.Health = &health
		}
	}

	return result, loadErr
}
