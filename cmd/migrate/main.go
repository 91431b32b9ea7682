package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/siteforge/backend/internal/config"
	"github.com/siteforge/backend/internal/logging"
	"github.com/siteforge/backend/internal/repository"
	"github.com/siteforge/backend/internal/service"
)

const usageText = `Usage: migrate [command]

Commands:
  (default)       未適用のマイグレーションを順番に適用
  reset           全テーブルを DROP し、集約スキーマで再作成
  fresh           全テーブルを DROP し、全マイグレーションを順番に適用
  import [file]   JSON カタログを catalog_documents に取り込む（既定は CATALOG_PATH）`

// migrator は migrations ディレクトリの SQL をデータベースに適用する
type migrator struct {
	pool *pgxpool.Pool
	dir  string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("INFO")
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.Logging.Level)

	if cfg.Catalog.DatabaseURL == "" {
		logging.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, cfg.Catalog.DatabaseURL)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	m := &migrator{pool: pool, dir: migrationDir()}

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "":
		err = m.up(ctx)
	case "reset":
		if err = m.execFile(ctx, "000_drop_all.sql"); err == nil {
			err = m.consolidated(ctx)
		}
	case "fresh":
		if err = m.execFile(ctx, "000_drop_all.sql"); err == nil {
			err = m.up(ctx)
		}
	case "import":
		path := cfg.Catalog.Path
		if len(args) > 1 {
			path = args[1]
		}
		err = importCatalog(ctx, pool, path, cfg.Catalog.DocumentID)
	default:
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		logging.Fatal("migrate failed", "command", cmd, "error", err)
	}
}

func migrationDir() string {
	for _, dir := range []string{"migrations", "../migrations"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "migrations"
}

// pending は未記録の .up.sql をファイル名順で返す
func (m *migrator) pending(ctx context.Context) ([]string, error) {
	names, err := m.upNames()
	if err != nil {
		return nil, err
	}
	rows, err := m.pool.Query(ctx, "SELECT name FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	done := lo.SliceToMap(applied, func(n string) (string, struct{}) { return n, struct{}{} })
	return lo.Reject(names, func(n string, _ int) bool {
		_, ok := done[n]
		return ok
	}), nil
}

// upNames は .up.sql の拡張子を除いたファイル名をソート済みで返す
func (m *migrator) upNames() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(m.dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	// Glob はソート済みの結果を返す
	return lo.Map(files, func(f string, _ int) string {
		return strings.TrimSuffix(filepath.Base(f), ".up.sql")
	}), nil
}

func (m *migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

// up は未適用のマイグレーションを 1 件ずつトランザクション内で適用・記録する
func (m *migrator) up(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	names, err := m.pending(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		slog.Info("all migrations already applied")
		return nil
	}
	for _, name := range names {
		sql, err := os.ReadFile(filepath.Join(m.dir, name+".up.sql"))
		if err != nil {
			return err
		}
		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		slog.Info("migration applied", "migration", name)
	}
	slog.Info("migrations completed", "count", len(names))
	return nil
}

// consolidated は集約スキーマを適用し、全マイグレーションを適用済みとして記録する
func (m *migrator) consolidated(ctx context.Context) error {
	if err := m.execFile(ctx, "000_consolidated.sql"); err != nil {
		return err
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	names, err := m.upNames()
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue("INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
	}
	if err := m.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("mark migrations: %w", err)
	}
	slog.Info("consolidated schema applied", "migrations_marked", len(names))
	return nil
}

func (m *migrator) execFile(ctx context.Context, name string) error {
	sql, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return err
	}
	if _, err := m.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	slog.Info("sql file executed", "file", name)
	return nil
}

// importCatalog は JSON カタログを検査してから Postgres に保存する。
// 整合性の問題は警告として出力し、取り込みは続行する。
func importCatalog(ctx context.Context, pool *pgxpool.Pool, path, documentID string) error {
	slog.Info("importing catalog", "path", path, "document_id", documentID)

	res, err := service.NewCatalogService(repository.NewFileCatalogStore(path)).Load(ctx)
	if err != nil {
		return err
	}
	if res.Snapshot.Revision == "" {
		return fmt.Errorf("catalog file not found: %s", path)
	}
	for _, w := range res.Warnings {
		slog.Warn("catalog warning", "error", w)
	}

	snap, err := repository.NewPgCatalogStore(pool, documentID).Save(ctx, res.Catalog, "")
	if err != nil {
		return err
	}
	slog.Info("catalog imported",
		"products", res.Catalog.Products.Len(),
		"categories", res.Catalog.Categories.Len(),
		"revision", snap.Revision,
	)
	return nil
}
