// Package migrations embeds the goose SQL migrations that bootstrap the
// database schema at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
