// Package migrations holds the issuer's SQL schema.
package migrations

import "embed"

// Files contains every *.sql migration, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
