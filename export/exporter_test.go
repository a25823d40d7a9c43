package export

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-gridexport/export/notify"
)

type stubRasterizer struct {
	img    Image
	err    error
	calls  int
	layout Layout
	opts   CaptureOptions
}

func (r *stubRasterizer) Rasterize(ctx context.Context, layout Layout, opts CaptureOptions) (Image, error) {
	_ = ctx
	r.calls++
	r.layout = layout
	r.opts = opts
	if r.err != nil {
		return Image{}, r.err
	}
	return r.img, nil
}

type stubDocument struct {
	width, height float64
	embeds        []stubEmbed
	embedErr      error
	writeErr      error
}

type stubEmbed struct {
	img        Image
	x, y, w, h float64
}

func (d *stubDocument) PageWidth() float64  { return d.width }
func (d *stubDocument) PageHeight() float64 { return d.height }

func (d *stubDocument) EmbedImage(img Image, x, y, w, h float64) error {
	if d.embedErr != nil {
		return d.embedErr
	}
	d.embeds = append(d.embeds, stubEmbed{img: img, x: x, y: y, w: w, h: h})
	return nil
}

func (d *stubDocument) Write(w io.Writer) error {
	if d.writeErr != nil {
		return d.writeErr
	}
	_, err := io.WriteString(w, "%PDF-stub")
	return err
}

type stubFactory struct {
	doc  *stubDocument
	opts DocumentOptions
	err  error
}

func (f *stubFactory) NewDocument(opts DocumentOptions) (Document, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, evt ChangeEvent) error {
	_ = ctx
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Name)
	}
	return out
}

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}
func (l *recordingLogger) Errorf(format string, args ...any) {
	l.errors = append(l.errors, format)
}

func testSnapshot() Snapshot {
	cells := [][]string{
		{"Ano", "Valor", ""},
		{"", "", ""},
		{"", "", ""},
	}
	return NewSnapshot("snap-1", cells, "Tabela 1", "Fonte: Elaborado pelos autores.", time.Unix(0, 0))
}

func newTestExporter() (*Exporter, *stubRasterizer, *stubFactory, *MemoryStore, *notify.Queue) {
	raster := &stubRasterizer{img: Image{Data: []byte("png"), Width: 800, Height: 300, Format: "PNG"}}
	factory := &stubFactory{doc: &stubDocument{width: 210, height: 297}}
	store := NewMemoryStore()
	queue := notify.NewQueue(0)
	exporter := NewExporter(raster, factory, store)
	exporter.Notifier = queue
	return exporter, raster, factory, store, queue
}

func TestExporterHappyPath(t *testing.T) {
	exporter, raster, factory, store, queue := newTestExporter()
	emitter := &recordingEmitter{}
	exporter.Emitter = emitter

	result, err := exporter.Export(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Filename != "Tabela_1.pdf" {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
	if raster.opts.Scale != 2 || !raster.opts.CrossOrigin || raster.opts.Logging {
		t.Fatalf("unexpected capture options %+v", raster.opts)
	}
	if cell, ok := raster.layout.Cell(0, 1); !ok || cell.Text.Text != "Valor" || !cell.Header {
		t.Fatalf("expected header cell with snapshot value, got %+v", cell)
	}
	if factory.opts.Orientation != OrientationPortrait || factory.opts.Unit != "mm" || factory.opts.Format != PageA4 {
		t.Fatalf("unexpected document options %+v", factory.opts)
	}

	embeds := factory.doc.embeds
	if len(embeds) != 1 {
		t.Fatalf("expected one embedded image, got %d", len(embeds))
	}
	e := embeds[0]
	scale := (210.0 / 800) * 0.9
	if !approx(e.w, 800*scale) || !approx(e.h, 300*scale) {
		t.Fatalf("unexpected embed size %vx%v", e.w, e.h)
	}
	if !approx(e.x, (210-e.w)/2) || e.y != 30 {
		t.Fatalf("unexpected embed position %v,%v", e.x, e.y)
	}

	rc, meta, err := store.Open(context.Background(), result.Artifact.Key)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-stub" || meta.Filename != "Tabela_1.pdf" || meta.ContentType != "application/pdf" {
		t.Fatalf("unexpected artifact %q %+v", data, meta)
	}

	notes := queue.Drain()
	if len(notes) != 2 || notes[0].Key != notify.KeyExportStarted || notes[1].Key != notify.KeyExportSucceeded {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	names := emitter.names()
	if len(names) != 2 || names[0] != "export.started" || names[1] != "export.completed" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestExporterCaptureFailure(t *testing.T) {
	exporter, raster, factory, store, queue := newTestExporter()
	raster.err = errors.New("capture backend unavailable")
	logger := &recordingLogger{}
	exporter.Logger = logger
	emitter := &recordingEmitter{}
	exporter.Emitter = emitter

	_, err := exporter.Export(context.Background(), testSnapshot())
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected no artifact, got %v", store.Keys())
	}
	if len(factory.doc.embeds) != 0 {
		t.Fatalf("expected no document assembly")
	}

	failures := 0
	for _, n := range queue.Drain() {
		if n.Severity.IsError() {
			failures++
			if n.Key != notify.KeyExportFailed {
				t.Fatalf("unexpected failure key %q", n.Key)
			}
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one failure notification, got %d", failures)
	}
	if len(logger.errors) == 0 {
		t.Fatalf("expected failure to be logged")
	}
	names := emitter.names()
	if names[len(names)-1] != "export.failed" {
		t.Fatalf("expected export.failed event, got %v", names)
	}
}

func TestExporterAssemblyFailures(t *testing.T) {
	cases := map[string]func(*stubRasterizer, *stubFactory){
		"new document": func(_ *stubRasterizer, f *stubFactory) { f.err = errors.New("no fonts") },
		"embed":        func(_ *stubRasterizer, f *stubFactory) { f.doc.embedErr = errors.New("bad image") },
		"write":        func(_ *stubRasterizer, f *stubFactory) { f.doc.writeErr = errors.New("disk full") },
		"zero image":   func(r *stubRasterizer, _ *stubFactory) { r.img.Width = 0 },
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			exporter, raster, factory, store, queue := newTestExporter()
			setup(raster, factory)

			if _, err := exporter.Export(context.Background(), testSnapshot()); err == nil {
				t.Fatalf("expected error")
			}
			if len(store.Keys()) != 0 {
				t.Fatalf("expected no artifact")
			}
			notes := queue.Drain()
			last := notes[len(notes)-1]
			if last.Key != notify.KeyExportFailed {
				t.Fatalf("expected failure notification, got %+v", notes)
			}
		})
	}
}

func TestExporterUsesCatalogLabels(t *testing.T) {
	exporter, _, _, _, queue := newTestExporter()
	exporter.Messages = notify.Catalog{notify.KeyExportStarted: {Title: "Exportando"}}
	if _, err := exporter.Export(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("export: %v", err)
	}
	notes := queue.Drain()
	if notes[0].Title != "Exportando" {
		t.Fatalf("expected catalog label, got %q", notes[0].Title)
	}
	if notes[len(notes)-1].Title != "PDF Gerado com Sucesso" {
		t.Fatalf("expected built-in label, got %q", notes[len(notes)-1].Title)
	}
}

func TestExporterKeysSurviveRestart(t *testing.T) {
	store := NewMemoryStore()
	var keys []string
	for i := 0; i < 2; i++ {
		raster := &stubRasterizer{img: Image{Data: []byte("png"), Width: 800, Height: 300, Format: "PNG"}}
		exporter := NewExporter(raster, &stubFactory{doc: &stubDocument{width: 210, height: 297}}, store)
		result, err := exporter.Export(context.Background(), testSnapshot())
		if err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
		if _, err := uuid.Parse(result.ID); err != nil {
			t.Fatalf("expected uuid export id, got %q", result.ID)
		}
		keys = append(keys, result.Artifact.Key)
	}
	if keys[0] == keys[1] {
		t.Fatalf("expected distinct keys across exporters, got %v", keys)
	}
	if len(store.Keys()) != 2 {
		t.Fatalf("expected both artifacts kept, got %v", store.Keys())
	}
}
