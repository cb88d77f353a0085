package handlers

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names rendered through gin's HTML renderer.
const (
	indexTemplate   = "index.tmpl"
	resultsTemplate = "results.tmpl"
)

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))
}
