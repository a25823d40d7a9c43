package exporthttp

import (
	"net/http"

	"github.com/goliatone/go-gridexport/adapters/editorapi"
	"github.com/goliatone/go-gridexport/export"
)

// Config configures the HTTP adapter.
type Config = editorapi.Config

// Handler exposes table editor HTTP endpoints.
type Handler struct {
	controller *editorapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: editorapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.basePath(), h)
		r.Handle(h.basePath()+"/", h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.basePath(), h.ServeHTTP)
		r.HandleFunc(h.basePath()+"/", h.ServeHTTP)
	}
}

// ServeHTTP routes table endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		editorapi.WriteError(httpResponse{w: w}, export.NewError(export.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w})
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return editorapi.DefaultBasePath
	}
	path := h.controller.BasePath()
	if path == "" {
		return editorapi.DefaultBasePath
	}
	return path
}
