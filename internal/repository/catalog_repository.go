package repository

import (
	"context"
	"time"

	"github.com/siteforge/backend/internal/model"
)

// Snapshot describes the stored document a catalog was read from or
// written to.
type Snapshot struct {
	Revision   string    `json:"revision"`
	ModifiedAt time.Time `json:"modified_at"`
}

// CatalogStore persists the catalog as a single document. There is no
// partial write: Save replaces the whole document.
type CatalogStore interface {
	// Load returns the stored catalog. When no document exists it returns an
	// error marked ErrMissingStore.
	Load(ctx context.Context) (*model.Catalog, Snapshot, error)
	// Save writes the catalog. When expectedRevision is not empty and the
	// stored document has another revision, nothing is written and an error
	// marked ErrRevisionConflict is returned.
	Save(ctx context.Context, c *model.Catalog, expectedRevision string) (Snapshot, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
