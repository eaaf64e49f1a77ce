// Package migrations embeds the schema migration files, one dialect directory
// per supported database backend.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
