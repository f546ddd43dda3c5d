package services

import (
	"context"

	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

// IndexManager manages index lifecycle on the document store.
type IndexManager interface {
	CreateIndex(ctx context.Context, name string, spec search.IndexSpec) error
	DeleteIndex(ctx context.Context, name string) error
	ClusterHealth(ctx context.Context) (search.Health, error)
}

// CollectionLoader bulk-loads a collection file into the index of the same name.
type CollectionLoader interface {
	LoadCollection(ctx context.Context, name string) (loader.Report, error)
}
