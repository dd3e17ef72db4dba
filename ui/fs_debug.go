//go:build debug

package ui

import (
	"io/fs"
	"os"
)

// AssetsFS returns a live filesystem rooted at ui/ (debug: reads from disk).
// Template and stylesheet edits show up on reload without recompiling Go.
func AssetsFS() fs.FS {
	return os.DirFS("ui")
}
