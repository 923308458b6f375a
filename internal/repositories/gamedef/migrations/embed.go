package migrations

import "embed"

// FS holds the SQLite migrations for game definitions.
//
//go:embed *.sql
var FS embed.FS
