// Package store manages the destination schema and the ETL run ledger.
package store

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockKey identifies the advisory lock held while migrating.
const migrationLockKey = 20201022

// Migrate runs all pending SQL migrations in lexicographic order.
// It creates the etl_schema_migrations tracking table if needed,
// then applies any .sql files not yet recorded. Each file runs in its own
// transaction together with its tracking row, under a transaction-scoped
// advisory lock so concurrent runners apply it at most once.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	if err := ensureMigrationTable(ctx, pool); err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "store: read migration dir")
	}

	// Sort by filename (lexicographic = numeric order with zero-padded names).
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "store: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))

		ran, err := applyMigration(ctx, pool, name, string(data))
		if err != nil {
			return err
		}
		if !ran {
			log.Info("migration applied by another runner", zap.String("file", name))
			continue
		}

		log.Info("migration applied", zap.String("file", name))
	}

	return nil
}

// lockMigrations takes the advisory lock for the lifetime of tx.
func lockMigrations(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return eris.Wrap(err, "store: acquire migration advisory lock")
	}
	return nil
}

// applyMigration runs one file and records it atomically. It reports false
// when the file was recorded by someone else while waiting for the lock.
func applyMigration(ctx context.Context, pool db.Pool, name, sql string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrapf(err, "store: begin migration %s", name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockMigrations(ctx, tx); err != nil {
		return false, err
	}

	var done bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM etl_schema_migrations WHERE filename = $1)",
		name,
	).Scan(&done); err != nil {
		return false, eris.Wrapf(err, "store: check migration %s", name)
	}
	if done {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, eris.Wrapf(err, "store: apply migration %s", name)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO etl_schema_migrations (filename, applied_at) VALUES ($1, now())",
		name,
	); err != nil {
		return false, eris.Wrapf(err, "store: record migration %s", name)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrapf(err, "store: commit migration %s", name)
	}
	return true, nil
}

func ensureMigrationTable(ctx context.Context, pool db.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: begin migration table tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockMigrations(ctx, tx); err != nil {
		return err
	}

	sql := `
		CREATE TABLE IF NOT EXISTS etl_schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := tx.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "store: ensure migration table")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "store: commit migration table")
	}
	return nil
}

// appliedMigrations returns the set of already-applied migration filenames.
func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM etl_schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "store: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "store: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
