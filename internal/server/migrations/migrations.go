// Package migrations embeds the SQL schema migrations applied on server
// startup when a Postgres DSN is configured.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
