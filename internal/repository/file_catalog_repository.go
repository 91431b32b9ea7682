package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/storage"
)

// FileCatalogStore keeps the catalog in a JSON file on the local disk.
type FileCatalogStore struct {
	path  string
	key   string
	files storage.Storage
	// serializes revision check and write within this process
	mu sync.Mutex
}

// NewFileCatalogStore returns a store backed by the file at path.
func NewFileCatalogStore(path string) *FileCatalogStore {
	return &FileCatalogStore{
		path:  path,
		key:   filepath.Base(path),
		files: storage.NewLocalStorage(filepath.Dir(path)),
	}
}

func (s *FileCatalogStore) Load(ctx context.Context) (*model.Catalog, Snapshot, error) {
	data, snap, err := s.read(ctx)
	if err != nil {
		return nil, Snapshot{}, err
	}
	c, err := model.DecodeCatalog(data)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return c, snap, nil
}

func (s *FileCatalogStore) Save(ctx context.Context, c *model.Catalog, expectedRevision string) (Snapshot, error) {
	data, err := model.EncodeCatalog(c)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedRevision != "" {
		_, current, err := s.read(ctx)
		switch {
		case ierr.IsMissingStore(err):
			return Snapshot{}, revisionConflict(expectedRevision, "")
		case err != nil:
			return Snapshot{}, err
		case current.Revision != expectedRevision:
			return Snapshot{}, revisionConflict(expectedRevision, current.Revision)
		}
	}

	modified, err := s.files.Save(ctx, s.key, data)
	if err != nil {
		return Snapshot{}, ierr.WithError(err).
			WithHint("Failed to write the catalog file").
			Mark(ierr.ErrSystem)
	}
	return Snapshot{Revision: model.Revision(data), ModifiedAt: modified}, nil
}

func (s *FileCatalogStore) Ping(ctx context.Context) error {
	return s.files.Ping(ctx)
}

func (s *FileCatalogStore) read(ctx context.Context) ([]byte, Snapshot, error) {
	data, modified, err := s.files.Read(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Snapshot{}, ierr.WithError(err).
			WithHintf("%s not found; create the catalog from the admin page first", s.path).
			Mark(ierr.ErrMissingStore)
	}
	if err != nil {
		return nil, Snapshot{}, ierr.WithError(err).
			WithHint("Failed to read the catalog file").
			Mark(ierr.ErrSystem)
	}
	return data, Snapshot{Revision: model.Revision(data), ModifiedAt: modified}, nil
}

func revisionConflict(expected, actual string) error {
	return ierr.NewErrorf("expected revision %q, store has %q", expected, actual).
		WithHint("The catalog was changed by someone else; reload and retry").
		WithReportableDetails(map[string]any{"expected": expected, "actual": actual}).
		Mark(ierr.ErrRevisionConflict)
}
