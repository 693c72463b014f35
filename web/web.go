// Package web embeds the page templates, fragments and static assets, used
// when no web directory is configured.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Fragments returns the fragment templates.
func Fragments() fs.FS {
	sub, _ := fs.Sub(files, "templates/fragments")
	return sub
}

// Static returns the static assets.
func Static() fs.FS {
	sub, _ := fs.Sub(files, "static")
	return sub
}
