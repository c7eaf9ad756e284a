package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/db"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/migrate"
)

// ResolveConfig picks the active configuration. An explicit path wins and
// must exist; otherwise the workspace file is used, falling back to the
// defaults when there is none.
func ResolveConfig(workspace, path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.LoadOptional(workspace)
}

// OpenLedger opens the workspace ledger and brings its schema up to date.
func OpenLedger(ctx context.Context, workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return conn, nil
}
