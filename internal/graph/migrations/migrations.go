// Package migrations embeds the graph store schema.
package migrations

import "embed"

// FS holds the goose SQL migrations for the graph store.
//
//go:embed *.sql
var FS embed.FS
