// Package migrations embeds the notification database schema.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
