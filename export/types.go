package export

import (
	"context"
	"io"
	"time"
)

// Format is the export output format.
type Format string

const (
	FormatPDF Format = "pdf"
)

// Orientation is the page orientation.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// PageFormat names a page size.
type PageFormat string

const (
	PageA3     PageFormat = "A3"
	PageA4     PageFormat = "A4"
	PageA5     PageFormat = "A5"
	PageLetter PageFormat = "Letter"
	PageLegal  PageFormat = "Legal"
)

// UnitMillimetre is the only page unit used by exports.
const UnitMillimetre = "mm"

// DocumentOptions configures a new output document.
type DocumentOptions struct {
	Orientation Orientation
	Unit        string
	Format      PageFormat
	Title       string
	Subject     string
	Creator     string
	CreatedAt   time.Time
}

// DefaultDocumentOptions returns A4 portrait in millimetres.
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{
		Orientation: OrientationPortrait,
		Unit:        UnitMillimetre,
		Format:      PageA4,
	}
}

// Image is an encoded raster capture.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// CaptureOptions controls rasterization.
type CaptureOptions struct {
	// Scale is the pixel density multiplier.
	Scale float64
	// CrossOrigin permits loading external assets during capture.
	CrossOrigin bool
	Logging     bool
}

// DefaultCaptureOptions matches the double-density capture used for exports.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{Scale: 2, CrossOrigin: true}
}

// Rasterizer renders a layout into an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, layout Layout, opts CaptureOptions) (Image, error)
}

// RasterizerFunc adapts a function to a Rasterizer.
type RasterizerFunc func(ctx context.Context, layout Layout, opts CaptureOptions) (Image, error)

func (f RasterizerFunc) Rasterize(ctx context.Context, layout Layout, opts CaptureOptions) (Image, error) {
	return f(ctx, layout, opts)
}

// Document is a paged output document under assembly.
type Document interface {
	PageWidth() float64
	PageHeight() float64
	EmbedImage(img Image, x, y, w, h float64) error
	Write(w io.Writer) error
}

// DocumentFactory creates output documents.
type DocumentFactory interface {
	NewDocument(opts DocumentOptions) (Document, error)
}

// DocumentFactoryFunc adapts a function to a DocumentFactory.
type DocumentFactoryFunc func(opts DocumentOptions) (Document, error)

func (f DocumentFactoryFunc) NewDocument(opts DocumentOptions) (Document, error) {
	return f(opts)
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Filename    string
	CreatedAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore stores export artifacts.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
}

// Result describes a completed export.
type Result struct {
	ID        string
	Format    Format
	Filename  string
	Bytes     int64
	Artifact  ArtifactRef
	Placement Placement
	Image     ImageInfo
}

// ImageInfo records the dimensions of the embedded capture.
type ImageInfo struct {
	Width  int
	Height int
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// ChangeEvent describes lifecycle events.
type ChangeEvent struct {
	Name       string
	ExportID   string
	SnapshotID string
	Format     Format
	Timestamp  time.Time
	Metadata   map[string]any
}

// ChangeEmitter emits lifecycle events.
type ChangeEmitter interface {
	Emit(ctx context.Context, evt ChangeEvent) error
}

// ChangeEmitterFunc adapts a function to a ChangeEmitter.
type ChangeEmitterFunc func(ctx context.Context, evt ChangeEvent) error

func (f ChangeEmitterFunc) Emit(ctx context.Context, evt ChangeEvent) error {
	return f(ctx, evt)
}
