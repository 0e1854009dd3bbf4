// Package migrations embeds the schema for each supported database.
package migrations

import "embed"

// Files are applied in name order; see db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
