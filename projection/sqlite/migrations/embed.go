// Package migrations contains the embedded SQL schema migrations of the
// sqlite projection store.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
