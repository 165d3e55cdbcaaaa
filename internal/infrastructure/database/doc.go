// Package database provides SQLite connectivity for Rentwise Core.
//
// It opens the database with WAL mode, a busy timeout and foreign keys
// enforced, and applies embedded schema migrations in version order.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. New columns must be nullable or carry a
// default so older binaries keep working against a migrated file.
package database
