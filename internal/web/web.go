// Package web embeds the HTML templates and static assets served next to the
// JSON API.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// FaviconPath is the icon location inside Static().
const FaviconPath = "favicon.ico"

// Templates parses every page template. Templates are addressed by file
// name, e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// MustTemplates is Templates for use during router setup.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Favicon returns the raw icon bytes.
func Favicon() ([]byte, error) {
	return fs.ReadFile(Static(), FaviconPath)
}
