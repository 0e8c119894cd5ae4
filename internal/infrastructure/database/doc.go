// Package database provides the SQLite connection that stores run history.
//
// The database is opened with a single connection (SQLite has one writer),
// an optional WAL journal and a busy timeout. Schema changes are plain SQL
// files named YYYYMMDD_HHMMSS_description.up.sql / .down.sql, embedded by
// the migrations package and applied with Migrate.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or have defaults.
package database
