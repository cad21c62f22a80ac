package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/001_initial.up.sql
var schemaSQL string

// schemaLockKey serializes concurrent EnsureSchema calls across processes.
const schemaLockKey int64 = 0x6d756c7469617574

var schemaTables = []string{
	"users",
	"employees",
	"managers",
	"oauth_clients",
	"oauth_access_tokens",
	"oauth_refresh_tokens",
}

// EnsureSchema creates whatever auth tables are missing. The schema file is
// idempotent, so a partially created schema is completed rather than reset.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return errors.New("database pool is not initialized")
	}

	missing, err := db.missingTables(ctx)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if len(missing) == 0 {
		slog.Debug("auth schema up to date")
		return nil
	}

	slog.Info("creating auth schema", "missing", strings.Join(missing, ","))
	err = pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	missing, err = db.missingTables(ctx)
	if err != nil {
		return fmt.Errorf("inspect schema after apply: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("auth schema still missing tables: %s", strings.Join(missing, ", "))
	}

	slog.Info("auth schema created")
	return nil
}

func (db *DB) missingTables(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = ANY($1)
	`, schemaTables)
	if err != nil {
		return nil, err
	}
	present, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(present))
	for _, name := range present {
		have[name] = struct{}{}
	}

	var missing []string
	for _, name := range schemaTables {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
