package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"blogfront/actions"
	"blogfront/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Data is passed to every component template
type Data struct {
	Props any
	// Child is the rendered output of the next inner component
	Child template.HTML
}

// Renderer turns a resolved route into HTML
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render renders components innermost first, handing each result to the
// next outer component as its Child.
func (r *Renderer) Render(w io.Writer, components []Component, state store.Collection, env *Env) error {
	var child template.HTML
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]

		var buf bytes.Buffer
		data := Data{Props: component.Props(state, env), Child: child}
		if err := r.templates.ExecuteTemplate(&buf, component.Template(), data); err != nil {
			return fmt.Errorf("error rendering %s: %w", component.Name(), err)
		}
		child = template.HTML(buf.String())
	}

	_, err := io.WriteString(w, string(child))
	return err
}

// RenderNotFound renders the not found page inside the App layout
func (r *Renderer) RenderNotFound(w io.Writer, env *Env) error {
	return r.Render(w, []Component{App{}, notFound{}}, store.Collection{}, env)
}

type notFound struct{}

func (notFound) Name() string     { return "NotFound" }
func (notFound) Template() string { return "not_found" }

func (notFound) Mount(ctx context.Context, env *Env) []*actions.Result { return nil }

func (notFound) Props(state store.Collection, env *Env) any { return nil }
