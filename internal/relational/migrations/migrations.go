// Package migrations embeds the relational store schema.
package migrations

import "embed"

// FS holds the goose SQL migrations for the relational store.
//
//go:embed *.sql
var FS embed.FS
