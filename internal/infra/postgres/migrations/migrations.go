package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema steps, registered by the numbered files.
var Migrations = migrate.NewMigrations()

// execSQL runs a script of one or more statements; pgdriver sends scripts
// without arguments over the simple query protocol.
func execSQL(script string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, script)
		return err
	}
}
