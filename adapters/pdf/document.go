package exportpdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/goliatone/go-gridexport/export"
)

var pageSizesMillimetre = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 297, height: 420},
	"A4":     {width: 210, height: 297},
	"A5":     {width: 148, height: 210},
	"LETTER": {width: 215.9, height: 279.4},
	"LEGAL":  {width: 215.9, height: 355.6},
}

// PageSize returns the portrait dimensions of a page format in millimetres.
func PageSize(format export.PageFormat) (float64, float64, bool) {
	size, ok := pageSizesMillimetre[strings.ToUpper(string(format))]
	return size.width, size.height, ok
}

// FPDFFactory creates documents backed by go-pdf/fpdf.
type FPDFFactory struct {
	Creator     string
	Compression bool
}

// NewFPDFFactory returns a factory with compression enabled.
func NewFPDFFactory() FPDFFactory {
	return FPDFFactory{Creator: "go-gridexport", Compression: true}
}

// NewDocument opens a document with a single blank page.
func (f FPDFFactory) NewDocument(opts export.DocumentOptions) (export.Document, error) {
	if _, _, ok := PageSize(opts.Format); !ok {
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("unsupported page format: %s", opts.Format), nil)
	}
	orientation := "P"
	switch opts.Orientation {
	case "", export.OrientationPortrait:
	case export.OrientationLandscape:
		orientation = "L"
	default:
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("unsupported orientation: %s", opts.Orientation), nil)
	}
	unit := opts.Unit
	if unit == "" {
		unit = export.UnitMillimetre
	}

	pdf := fpdf.New(orientation, unit, string(opts.Format), "")
	pdf.SetCompression(f.Compression)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	if opts.Subject != "" {
		pdf.SetSubject(opts.Subject, true)
	}
	creator := opts.Creator
	if creator == "" {
		creator = f.Creator
	}
	if creator != "" {
		pdf.SetCreator(creator, true)
	}
	created := opts.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	pdf.SetCreationDate(created)
	pdf.AddPage()

	if err := pdf.Error(); err != nil {
		return nil, export.NewError(export.KindInternal, "pdf document init failed", err)
	}
	return &FPDFDocument{pdf: pdf}, nil
}

// FPDFDocument is a single-page fpdf document.
type FPDFDocument struct {
	pdf    *fpdf.Fpdf
	images int
}

// PageWidth returns the page width in document units.
func (d *FPDFDocument) PageWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w
}

// PageHeight returns the page height in document units.
func (d *FPDFDocument) PageHeight() float64 {
	_, h := d.pdf.GetPageSize()
	return h
}

// EmbedImage places an encoded image at x, y with the given size.
func (d *FPDFDocument) EmbedImage(img export.Image, x, y, w, h float64) error {
	if len(img.Data) == 0 {
		return export.NewError(export.KindValidation, "image data is empty", nil)
	}
	format := strings.ToUpper(img.Format)
	if format == "" {
		format = "PNG"
	}
	switch format {
	case "PNG", "JPG", "JPEG":
	default:
		return export.NewError(export.KindValidation, fmt.Sprintf("unsupported image format: %s", img.Format), nil)
	}

	d.images++
	name := fmt.Sprintf("capture-%d", d.images)
	options := fpdf.ImageOptions{ImageType: format}
	d.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(img.Data))
	if err := d.pdf.Error(); err != nil {
		return export.NewError(export.KindInternal, "pdf image register failed", err)
	}
	d.pdf.ImageOptions(name, x, y, w, h, false, options, 0, "")
	if err := d.pdf.Error(); err != nil {
		return export.NewError(export.KindInternal, "pdf image placement failed", err)
	}
	return nil
}

// Write emits the finished document.
func (d *FPDFDocument) Write(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return export.NewError(export.KindInternal, "pdf output failed", err)
	}
	return nil
}

// PageCount returns the number of pages.
func (d *FPDFDocument) PageCount() int {
	return d.pdf.PageCount()
}
