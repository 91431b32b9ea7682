package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
)

// PgCatalogStore は CatalogStore の PostgreSQL 実装。
// ドキュメントは json 型で保存する（jsonb はキー順序を保持しないため）。
type PgCatalogStore struct {
	pool       *pgxpool.Pool
	documentID string
}

// NewPgCatalogStore は PgCatalogStore を生成する
func NewPgCatalogStore(pool *pgxpool.Pool, documentID string) *PgCatalogStore {
	if documentID == "" {
		documentID = "default"
	}
	return &PgCatalogStore{pool: pool, documentID: documentID}
}

// Load は catalog_documents から 1 行を読み込む
func (r *PgCatalogStore) Load(ctx context.Context) (*model.Catalog, Snapshot, error) {
	var (
		doc       string
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT document::text, updated_at FROM catalog_documents WHERE id = $1`,
		r.documentID,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Snapshot{}, ierr.WithError(err).
			WithHintf("Catalog document %q not found; create the catalog from the admin page first", r.documentID).
			Mark(ierr.ErrMissingStore)
	}
	if err != nil {
		return nil, Snapshot{}, ierr.WithError(err).
			WithHint("Failed to read the catalog").
			Mark(ierr.ErrSystem)
	}

	c, err := model.DecodeCatalog([]byte(doc))
	if err != nil {
		return nil, Snapshot{}, err
	}
	return c, Snapshot{Revision: model.Revision([]byte(doc)), ModifiedAt: updatedAt}, nil
}

// Save はドキュメント全体を置き換え、履歴に 1 行追加する。期待リビジョンが指定されていれば行ロックの下で照合する
func (r *PgCatalogStore) Save(ctx context.Context, c *model.Catalog, expectedRevision string) (Snapshot, error) {
	data, err := model.EncodeCatalog(c)
	if err != nil {
		return Snapshot{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, dbError(err)
	}
	defer tx.Rollback(ctx)

	if expectedRevision != "" {
		var current string
		err := tx.QueryRow(ctx,
			`SELECT document::text FROM catalog_documents WHERE id = $1 FOR UPDATE`,
			r.documentID,
		).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Snapshot{}, revisionConflict(expectedRevision, "")
		case err != nil:
			return Snapshot{}, dbError(err)
		case model.Revision([]byte(current)) != expectedRevision:
			return Snapshot{}, revisionConflict(expectedRevision, model.Revision([]byte(current)))
		}
	}

	var updatedAt time.Time
	if err := tx.QueryRow(ctx,
		`INSERT INTO catalog_documents (id, document, updated_at)
		 VALUES ($1, $2::json, NOW())
		 ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
		 RETURNING updated_at`,
		r.documentID, string(data),
	).Scan(&updatedAt); err != nil {
		return Snapshot{}, dbError(err)
	}
	rev := model.Revision(data)
	if _, err := tx.Exec(ctx,
		`INSERT INTO catalog_document_history (document_id, revision, document, saved_at)
		 VALUES ($1, $2, $3::json, $4)`,
		r.documentID, rev, string(data), updatedAt,
	); err != nil {
		return Snapshot{}, dbError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, dbError(err)
	}
	return Snapshot{Revision: rev, ModifiedAt: updatedAt}, nil
}

// Ping は DB 接続の生存確認を行う
func (r *PgCatalogStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func dbError(err error) error {
	return ierr.WithError(err).
		WithHint("Failed to write the catalog").
		Mark(ierr.ErrSystem)
}
