// Package migrations embeds the schema migration files shipped with the
// binary so deployments never depend on an on-disk migrations directory.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var files embed.FS

// Files returns the migration file system rooted at the SQL files.
func Files() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}
