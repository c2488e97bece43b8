package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the name of the full form page.
const PageTemplate = "form.html"

// Templates holds the parsed HTML templates.
type Templates struct {
	t *template.Template
}

// ParseTemplates loads the embedded templates.
func ParseTemplates() (*Templates, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{t: t}, nil
}

// MustParseTemplates is ParseTemplates for package init and tests.
func MustParseTemplates() *Templates {
	t, err := ParseTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

// Execute writes the named template with data.
func (t *Templates) Execute(w io.Writer, name string, data interface{}) error {
	return t.t.ExecuteTemplate(w, name, data)
}
