// Package migrations embeds the Postgres schema templates.
package migrations

import "embed"

// FS holds the templated migration files. Each file is rendered with the
// target table name and vector dimensions before execution.
//
//go:embed *.sql.tmpl
var FS embed.FS
