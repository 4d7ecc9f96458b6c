package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer serves the embedded pages through echo.Context.Render.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if r.templates.Lookup(name) == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	return r.templates.ExecuteTemplate(w, name, data)
}

var _ echo.Renderer = (*Renderer)(nil)
