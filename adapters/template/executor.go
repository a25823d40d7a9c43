package exporttemplate

import (
	"embed"
	"fmt"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-gridexport/export"
)

// DefaultTemplateName is the name of the built-in capture template.
const DefaultTemplateName = "capture"

//go:embed templates/*.html
var builtinTemplates embed.FS

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// PongoExecutor executes pongo2 templates registered by name.
type PongoExecutor struct {
	mu        sync.RWMutex
	templates map[string]*pongo2.Template
}

// NewPongoExecutor creates an executor preloaded with the built-in capture template.
func NewPongoExecutor() (*PongoExecutor, error) {
	exec := &PongoExecutor{templates: make(map[string]*pongo2.Template)}
	source, err := builtinTemplates.ReadFile("templates/capture.html")
	if err != nil {
		return nil, err
	}
	if err := exec.Register(DefaultTemplateName, string(source)); err != nil {
		return nil, err
	}
	return exec, nil
}

// Register compiles and stores a template under name.
func (e *PongoExecutor) Register(name, source string) error {
	if name == "" {
		return export.NewError(export.KindValidation, "template name is required", nil)
	}
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return export.NewError(export.KindValidation, fmt.Sprintf("template %q failed to compile", name), err)
	}
	e.mu.Lock()
	if e.templates == nil {
		e.templates = make(map[string]*pongo2.Template)
	}
	e.templates[name] = tpl
	e.mu.Unlock()
	return nil
}

// ExecuteTemplate renders the named template. Data must be a pongo2.Context
// or a map[string]any; other values are exposed as "data".
func (e *PongoExecutor) ExecuteTemplate(w io.Writer, name string, data any) error {
	e.mu.RLock()
	tpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return export.NewError(export.KindNotFound, fmt.Sprintf("template %q not registered", name), nil)
	}

	var ctx pongo2.Context
	switch v := data.(type) {
	case pongo2.Context:
		ctx = v
	case map[string]any:
		ctx = pongo2.Context(v)
	case nil:
		ctx = pongo2.Context{}
	default:
		ctx = pongo2.Context{"data": v}
	}
	return tpl.ExecuteWriter(ctx, w)
}
