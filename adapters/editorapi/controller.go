package editorapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"

	exportformgen "github.com/goliatone/go-gridexport/adapters/formgen"
	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/export/notify"
	"github.com/goliatone/go-gridexport/session"
)

// DefaultBasePath is the mount point of the table endpoints.
const DefaultBasePath = "/tables"

// DefaultMaxBufferBytes is the fallback buffer limit when streaming is unavailable.
const DefaultMaxBufferBytes int64 = 8 * 1024 * 1024

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// HTMLRenderer renders a snapshot as the preview page.
type HTMLRenderer interface {
	RenderSnapshot(ctx context.Context, snap export.Snapshot, w io.Writer) (int64, error)
}

// Config configures the shared editor API controller.
type Config struct {
	Service          session.Service
	HTML             HTMLRenderer
	BasePath         string
	Labels           exportformgen.Labels
	IdempotencyStore IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           export.Logger
	MaxBufferBytes   int64
	MaxBodyBytes     int64
}

// Controller exposes table editor handlers for multiple transports.
type Controller struct {
	service          session.Service
	html             HTMLRenderer
	basePath         string
	labels           exportformgen.Labels
	idempotencyStore IdempotencyStore
	idempotencyTTL   time.Duration
	logger           export.Logger
	maxBufferBytes   int64
	maxBodyBytes     int64
}

// NewController creates a shared editor API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}
	labels := cfg.Labels
	if labels.CellFormat == "" {
		labels = exportformgen.DefaultLabels()
	}
	maxBuffer := cfg.MaxBufferBytes
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferBytes
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Controller{
		service:          cfg.Service,
		html:             cfg.HTML,
		basePath:         basePath,
		labels:           labels,
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyTTL:   cfg.IdempotencyTTL,
		logger:           logger,
		maxBufferBytes:   maxBuffer,
		maxBodyBytes:     maxBody,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes table endpoints using the shared controller.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, export.NewError(export.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, export.NewError(export.KindInternal, "request is nil", nil))
		return
	}
	if c.service == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "table service not configured", nil))
		return
	}
	if !strings.HasPrefix(req.Path(), c.basePath) {
		writeNotFound(res)
		return
	}

	pathSuffix := strings.Trim(strings.TrimPrefix(req.Path(), c.basePath), "/")
	parts := []string{}
	if pathSuffix != "" {
		parts = strings.Split(pathSuffix, "/")
	}

	method := req.Method()
	switch len(parts) {
	case 0:
		if method != http.MethodPost {
			writeMethodNotAllowed(res, "POST")
			return
		}
		c.handleCreate(req, res)
	case 1:
		switch method {
		case http.MethodGet:
			c.handleState(req, res, parts[0])
		case http.MethodDelete:
			c.handleClose(req, res, parts[0])
		default:
			writeMethodNotAllowed(res, "GET,DELETE")
		}
	case 2:
		c.serveAction(req, res, parts[0], parts[1])
	case 3:
		if parts[1] != "artifacts" {
			writeNotFound(res)
			return
		}
		if method != http.MethodGet {
			writeMethodNotAllowed(res, "GET")
			return
		}
		c.handleArtifact(req, res, parts[0], parts[2])
	case 4:
		if parts[1] != "cells" {
			writeNotFound(res)
			return
		}
		if method != http.MethodPut {
			writeMethodNotAllowed(res, "PUT")
			return
		}
		c.handleSetCell(req, res, parts[0], parts[2], parts[3])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) serveAction(req Request, res Response, id, action string) {
	ctx := req.Context()
	method := req.Method()
	switch action {
	case "rows":
		switch method {
		case http.MethodPost:
			c.writeView(res)(c.service.AddRow(ctx, id))
		case http.MethodDelete:
			c.writeView(res)(c.service.RemoveRow(ctx, id))
		default:
			writeMethodNotAllowed(res, "POST,DELETE")
		}
	case "columns":
		switch method {
		case http.MethodPost:
			c.writeView(res)(c.service.AddColumn(ctx, id))
		case http.MethodDelete:
			c.writeView(res)(c.service.RemoveColumn(ctx, id))
		default:
			writeMethodNotAllowed(res, "POST,DELETE")
		}
	case "title", "caption":
		if method != http.MethodPut {
			writeMethodNotAllowed(res, "PUT")
			return
		}
		text, err := decodeText(req, c.maxBodyBytes)
		if err != nil {
			WriteError(res, err)
			return
		}
		if action == "title" {
			c.writeView(res)(c.service.SetTitle(ctx, id, text))
			return
		}
		c.writeView(res)(c.service.SetCaption(ctx, id, text))
	case "export":
		if method != http.MethodPost {
			writeMethodNotAllowed(res, "POST")
			return
		}
		c.writeView(res)(c.service.RequestExport(ctx, id))
	case "preview":
		if method != http.MethodGet {
			writeMethodNotAllowed(res, "GET")
			return
		}
		c.handlePreview(req, res, id)
	case "download":
		if method != http.MethodGet {
			writeMethodNotAllowed(res, "GET")
			return
		}
		c.handleDownload(req, res, id)
	case "form":
		if method != http.MethodGet {
			writeMethodNotAllowed(res, "GET")
			return
		}
		c.handleForm(req, res, id)
	default:
		writeNotFound(res)
	}
}

func (c *Controller) handleCreate(req Request, res Response) {
	ctx := req.Context()
	payload, err := decodeCreate(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}

	idemKey := ""
	if key := strings.TrimSpace(req.Header("Idempotency-Key")); key != "" && c.idempotencyStore != nil {
		idemKey = buildIdempotencyKey(key, payload)
		if existing, ok, err := c.idempotencyStore.Get(ctx, idemKey); err != nil {
			WriteError(res, err)
			return
		} else if ok {
			view, err := c.service.State(ctx, existing)
			if err == nil {
				writeJSON(res, http.StatusOK, view)
				return
			}
			if export.KindFromError(err) != export.KindNotFound {
				WriteError(res, err)
				return
			}
		}
	}

	view, err := c.service.Create(ctx, payload.toInput())
	if err != nil {
		WriteError(res, err)
		return
	}
	if idemKey != "" {
		if err := c.idempotencyStore.Set(ctx, idemKey, view.ID, c.idempotencyTTL); err != nil {
			c.logger.Errorf("idempotency store set failed: %v", err)
		}
	}
	res.SetHeader("Location", c.tableURL(view.ID))
	writeJSON(res, http.StatusCreated, view)
}

func (c *Controller) handleState(req Request, res Response, id string) {
	c.writeView(res)(c.service.State(req.Context(), id))
}

func (c *Controller) handleClose(req Request, res Response, id string) {
	if err := c.service.Close(req.Context(), id); err != nil {
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) handleSetCell(req Request, res Response, id, rawRow, rawCol string) {
	row, col, err := parsePosition(rawRow, rawCol)
	if err != nil {
		WriteError(res, err)
		return
	}
	text, err := decodeText(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	c.writeView(res)(c.service.SetCell(req.Context(), id, row, col, text))
}

func (c *Controller) handlePreview(req Request, res Response, id string) {
	if c.html == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "preview renderer not configured", nil))
		return
	}
	preview, err := c.service.Preview(req.Context(), id)
	if err != nil {
		WriteError(res, err)
		return
	}
	snap, ok := preview.Snapshot()
	if !ok {
		WriteError(res, export.NewError(export.KindNotFound, "no export has been requested", nil).WithCode("no_preview"))
		return
	}

	buffer := newLimitedBuffer(c.maxBufferBytes)
	if _, err := c.html.RenderSnapshot(req.Context(), snap, buffer); err != nil {
		WriteError(res, err)
		return
	}

	res.SetHeader("Content-Type", "text/html; charset=utf-8")
	res.SetHeader("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", sanitizeFilename(strings.TrimSuffix(snap.Filename(), ".pdf")+".html")))
	res.SetHeader("X-Snapshot-Id", snap.ID())
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buffer.Bytes()); err != nil {
		c.logger.Errorf("preview write failed: %v", err)
	}
}

func (c *Controller) handleDownload(req Request, res Response, id string) {
	ctx := req.Context()
	dl, err := c.service.Download(ctx, id)
	if len(dl.Notifications) > 0 {
		res.SetHeader("X-Notification-Keys", notificationKeys(dl.Notifications))
	}
	if err != nil {
		writeError(res, err, dl.Notifications)
		return
	}
	c.streamArtifact(req, res, id, dl.Key)
}

func (c *Controller) handleArtifact(req Request, res Response, id, key string) {
	c.streamArtifact(req, res, id, key)
}

func (c *Controller) streamArtifact(req Request, res Response, id, key string) {
	reader, meta, err := c.service.Artifact(req.Context(), id, key)
	if err != nil {
		WriteError(res, err)
		return
	}
	defer reader.Close()

	filename := sanitizeFilename(meta.Filename)
	setDownloadHeaders(res, key, filename, meta.ContentType)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", fmt.Sprintf("%d", meta.Size))
	}

	if writer, ok := res.Writer(); ok {
		res.WriteHeader(http.StatusOK)
		if _, err := io.Copy(writer, reader); err != nil {
			c.logger.Errorf("download copy failed: %v", err)
		}
		return
	}

	buffer := newLimitedBuffer(c.maxBufferBytes)
	if _, err := io.Copy(buffer, reader); err != nil {
		clearDownloadHeaders(res)
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buffer.Bytes()); err != nil {
		c.logger.Errorf("download buffer write failed: %v", err)
	}
}

func (c *Controller) handleForm(req Request, res Response, id string) {
	view, err := c.service.State(req.Context(), id)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, FormResponse{
		Form:          exportformgen.EditorUI(c.basePath, view.ID, view.Table, view.Preview.Visible, c.labels),
		Notifications: view.Notifications,
	})
}

func (c *Controller) writeView(res Response) func(session.View, error) {
	return func(view session.View, err error) {
		if err != nil {
			WriteError(res, err)
			return
		}
		writeJSON(res, http.StatusOK, view)
	}
}

func (c *Controller) tableURL(id string) string {
	return fmt.Sprintf("%s/%s", c.basePath, id)
}

func writeNotFound(res Response) {
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusNotFound)
	_, _ = res.Write([]byte("404 page not found\n"))
}

func writeMethodNotAllowed(res Response, allow string) {
	res.SetHeader("Allow", allow)
	res.WriteHeader(http.StatusMethodNotAllowed)
}

// WriteError writes err as a JSON error envelope with a status derived from its category.
func WriteError(res Response, err error) {
	writeError(res, err, nil)
}

func writeError(res Response, err error, notes []notify.Notification) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := export.AsGoError(err)
	status := statusForError(ge)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
		Notifications: notes,
	}
	writeJSON(res, status, payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.TextCode == "not_implemented" {
		return http.StatusNotImplemented
	}
	switch err.Category {
	case errorslib.CategoryValidation, errorslib.CategoryBadInput:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryConflict:
		return http.StatusConflict
	case errorslib.CategoryOperation:
		if err.TextCode == "canceled" {
			return http.StatusConflict
		}
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = export.Filename("")
	}
	return name
}

func setDownloadHeaders(res Response, exportID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/pdf"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if exportID != "" {
		res.SetHeader("X-Export-Id", exportID)
	}
}

func clearDownloadHeaders(res Response) {
	res.DelHeader("Content-Disposition")
	res.DelHeader("Content-Type")
	res.DelHeader("Content-Length")
	res.DelHeader("X-Export-Id")
}

func notificationKeys(items []notify.Notification) string {
	keys := make([]string, 0, len(items))
	for _, n := range items {
		keys = append(keys, string(n.Key))
	}
	return strings.Join(keys, ",")
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxBufferBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, export.NewError(export.KindInternal, "buffer limit exceeded", nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
