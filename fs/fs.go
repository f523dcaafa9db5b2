// Package appfs holds the files embedded in the binaries: SQL migrations and assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
	CommonPasswords   = "assets/common-passwords.txt"
	OMRLayout         = "assets/omr/layout.json"
)
