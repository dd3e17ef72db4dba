//go:build !debug

package ui

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var assetsFS embed.FS

// AssetsFS returns the embedded templates and static files (production: baked into binary).
func AssetsFS() fs.FS {
	return assetsFS
}
