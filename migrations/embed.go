// Package migrations holds the schema migrations for each supported driver.
package migrations

import "embed"

// FS contains postgres/*.sql and sqlite/*.sql
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
