// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migrations are read from an fs.FS (usually an embed.FS) and named
// {version}_{description}.sql, for example "001_initial_schema.sql". Each
// file runs in its own transaction and is recorded in schema_migrations, so
// re-running the manager only applies what is pending.
//
//	manager := migration.NewManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(db), files, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
