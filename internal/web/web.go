// Package web serves the browser UI bundled into the gateway binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Handler serves the UI assets, with index.html at "/".
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// static is embedded at build time; a failure here is a build defect.
		panic(err)
	}
	return http.FileServerFS(sub)
}
