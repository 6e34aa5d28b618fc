// Package migrations embeds the SQL migration files for each supported
// destination so goose can apply them without a filesystem path at runtime.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlserver/*.sql
var files embed.FS

// FS returns the migration files for the given driver ("postgres" or "sqlserver").
func FS(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlserver":
		return fs.Sub(files, driver)
	default:
		return nil, fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}
