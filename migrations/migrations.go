// Package migrations embeds the SQL schema so binaries can migrate without a
// checkout of the repository.
package migrations

import "embed"

// FS holds the golang-migrate files, named <version>_<name>.<up|down>.sql.
//
//go:embed *.sql
var FS embed.FS

//Personal.AI order the ending
