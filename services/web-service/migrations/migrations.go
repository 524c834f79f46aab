// Package migrations embeds the web database schema.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
