package export

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-gridexport/export/notify"
)

// Exporter turns a snapshot into a stored single-page document.
type Exporter struct {
	Rasterizer  Rasterizer
	Documents   DocumentFactory
	Store       ArtifactStore
	Notifier    notify.Notifier
	Messages    notify.Catalog
	Logger      Logger
	Emitter     ChangeEmitter
	Style       Style
	Capture     CaptureOptions
	Fit         FitOptions
	Document    DocumentOptions
	Now         func() time.Time
	IDGenerator func() string
}

// NewExporter creates an exporter with A4 portrait defaults.
func NewExporter(rasterizer Rasterizer, documents DocumentFactory, store ArtifactStore) *Exporter {
	return &Exporter{
		Rasterizer:  rasterizer,
		Documents:   documents,
		Store:       store,
		Notifier:    notify.Nop{},
		Messages:    notify.DefaultCatalog(),
		Logger:      NopLogger{},
		Style:       DefaultStyle(),
		Capture:     DefaultCaptureOptions(),
		Fit:         DefaultFitOptions(),
		Document:    DefaultDocumentOptions(),
		Now:         time.Now,
		IDGenerator: uuid.NewString,
	}
}

// Export captures the snapshot, places it on a page and stores the file.
// On failure nothing is stored and exactly one failure notification is sent.
func (e *Exporter) Export(ctx context.Context, snap Snapshot) (Result, error) {
	if e == nil {
		return Result{}, AsGoError(NewError(KindInternal, "exporter is nil", nil))
	}
	e.applyDefaults()

	info := exportInfo{
		exportID:  e.IDGenerator(),
		snapshot:  snap,
		filename:  Filename(snap.Title()),
		startedAt: e.Now(),
	}

	e.notify(ctx, notify.KeyExportStarted)
	e.emit(ctx, info, "export.started", nil)

	if snap.Rows() == 0 || snap.Cols() == 0 {
		err := NewError(KindValidation, "snapshot has no cells", nil).WithCode("empty_snapshot")
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}
	if e.Rasterizer == nil || e.Documents == nil || e.Store == nil {
		err := NewError(KindInternal, "exporter is not configured", nil)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	layout := BuildLayout(snap, e.Style)
	e.Logger.Debugf("export %s: layout %.0fx%.0f for %dx%d grid", info.exportID, layout.Width, layout.Height, snap.Rows(), snap.Cols())

	img, err := e.Rasterizer.Rasterize(ctx, layout, e.Capture)
	if err != nil {
		err = wrapStage("capture failed", err)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	docOpts := e.Document
	if docOpts.Title == "" {
		docOpts.Title = snap.Title()
	}
	if docOpts.CreatedAt.IsZero() {
		docOpts.CreatedAt = info.startedAt
	}
	doc, err := e.Documents.NewDocument(docOpts)
	if err != nil {
		err = wrapStage("document creation failed", err)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	placement, err := Fit(doc.PageWidth(), doc.PageHeight(), img.Width, img.Height, e.Fit)
	if err != nil {
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	if err := doc.EmbedImage(img, placement.X, placement.Y, placement.Width, placement.Height); err != nil {
		err = wrapStage("embed image failed", err)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		err = wrapStage("document write failed", err)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}
	if err := ctx.Err(); err != nil {
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	size := int64(buf.Len())
	ref, err := e.Store.Put(ctx, info.exportID, &buf, ArtifactMeta{
		ContentType: "application/pdf",
		Filename:    info.filename,
		CreatedAt:   e.Now(),
	})
	if err != nil {
		err = wrapStage("store artifact failed", err)
		e.fail(ctx, info, err)
		return Result{}, AsGoError(err)
	}

	e.notify(ctx, notify.KeyExportSucceeded)
	e.emit(ctx, info, "export.completed", map[string]any{
		"bytes":    size,
		"duration": e.Now().Sub(info.startedAt),
		"scale":    placement.Scale,
	})
	e.Logger.Infof("export %s: stored %s (%d bytes)", info.exportID, info.filename, size)

	return Result{
		ID:        info.exportID,
		Format:    FormatPDF,
		Filename:  info.filename,
		Bytes:     size,
		Artifact:  ref,
		Placement: placement,
		Image:     ImageInfo{Width: img.Width, Height: img.Height},
	}, nil
}

func (e *Exporter) applyDefaults() {
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Logger == nil {
		e.Logger = NopLogger{}
	}
	if e.Notifier == nil {
		e.Notifier = notify.Nop{}
	}
	if e.IDGenerator == nil {
		e.IDGenerator = uuid.NewString
	}
	if e.Capture.Scale <= 0 {
		e.Capture.Scale = DefaultCaptureOptions().Scale
	}
	if e.Fit.Margin <= 0 {
		e.Fit = DefaultFitOptions()
	}
	if e.Document.Format == "" {
		e.Document.Format = PageA4
	}
	if e.Document.Orientation == "" {
		e.Document.Orientation = OrientationPortrait
	}
	if e.Document.Unit == "" {
		e.Document.Unit = UnitMillimetre
	}
}

func (e *Exporter) fail(ctx context.Context, info exportInfo, err error) {
	e.Logger.Errorf("export %s failed: %v", info.exportID, err)
	e.notify(ctx, notify.KeyExportFailed)

	name := "export.failed"
	if errors.Is(err, context.Canceled) {
		name = "export.canceled"
	}
	e.emit(ctx, info, name, map[string]any{
		"error":      err.Error(),
		"error_kind": KindFromError(err),
		"duration":   e.Now().Sub(info.startedAt),
	})
}

func (e *Exporter) notify(ctx context.Context, key notify.Key) {
	if err := e.Notifier.Notify(ctx, e.Messages.Message(key)); err != nil {
		e.Logger.Errorf("notify %s: %v", key, err)
	}
}

func (e *Exporter) emit(ctx context.Context, info exportInfo, name string, meta map[string]any) {
	if e.Emitter == nil {
		return
	}
	base := map[string]any{
		"filename": info.filename,
		"rows":     info.snapshot.Rows(),
		"cols":     info.snapshot.Cols(),
	}
	_ = e.Emitter.Emit(ctx, ChangeEvent{
		Name:       name,
		ExportID:   info.exportID,
		SnapshotID: info.snapshot.ID(),
		Format:     FormatPDF,
		Timestamp:  e.Now(),
		Metadata:   mergeMetadata(base, meta),
	})
}

type exportInfo struct {
	exportID  string
	snapshot  Snapshot
	filename  string
	startedAt time.Time
}

func wrapStage(stage string, err error) error {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return err
	}
	kind := KindFromError(err)
	return NewError(kind, stage, err)
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
