package exportrouter

import (
	"github.com/goliatone/go-gridexport/adapters/editorapi"
	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = editorapi.Config

// Handler exposes table editor routes for go-router.
type Handler struct {
	controller *editorapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: editorapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()
	table := base + "/:id"

	r.Post(base, h.Handle)
	r.Post(base+"/", h.Handle)
	r.Get(table, h.Handle)
	r.Delete(table, h.Handle)

	for _, part := range []string{"/rows", "/columns"} {
		r.Post(table+part, h.Handle)
		r.Delete(table+part, h.Handle)
	}
	r.Put(table+"/title", h.Handle)
	r.Put(table+"/caption", h.Handle)
	r.Put(table+"/cells/:row/:col", h.Handle)

	r.Post(table+"/export", h.Handle)
	r.Get(table+"/preview", h.Handle)
	r.Get(table+"/download", h.Handle)
	r.Get(table+"/form", h.Handle)
	r.Get(table+"/artifacts/:key", h.Handle)
}

// Handle executes the shared editor workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		editorapi.WriteError(routerResponse{ctx: c}, export.NewError(export.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
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

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
