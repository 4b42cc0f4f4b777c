package savedobjects

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the saved object schema for postgres and, under
// data/sql/migrations/sqlite, the sqlite variant.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

func GetMigrationsFS() fs.FS {
	return migrationsFS
}
