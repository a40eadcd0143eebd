// Package migrations embeds the goose SQL migrations so the binary can
// bring a database up to date without external files.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
