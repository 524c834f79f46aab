// Package migrations embeds the office database schema.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
