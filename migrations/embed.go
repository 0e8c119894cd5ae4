// Package migrations embeds the SQL schema migrations so the binary can
// bring its database up to date without the files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
