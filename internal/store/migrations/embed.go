// Package migrations holds the SQL schema for the local store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
