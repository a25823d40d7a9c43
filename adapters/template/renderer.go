package exporttemplate

import (
	"context"
	"io"
	"strconv"

	"github.com/goliatone/go-gridexport/export"
)

// Renderer renders the capture HTML for a table.
type Renderer struct {
	Enabled      bool
	Templates    TemplateExecutor
	TemplateName string
	Style        export.Style
	Lang         string
}

// NewRenderer returns an enabled renderer backed by the built-in pongo2 template.
func NewRenderer() (Renderer, error) {
	exec, err := NewPongoExecutor()
	if err != nil {
		return Renderer{}, err
	}
	return Renderer{
		Enabled:      true,
		Templates:    exec,
		TemplateName: DefaultTemplateName,
		Style:        export.DefaultStyle(),
		Lang:         "pt-BR",
	}, nil
}

// RenderSnapshot lays out the snapshot and renders it.
func (r Renderer) RenderSnapshot(ctx context.Context, snap export.Snapshot, w io.Writer) (int64, error) {
	return r.RenderLayout(ctx, export.BuildLayout(snap, r.Style), w)
}

// RenderLayout renders a computed layout into HTML.
func (r Renderer) RenderLayout(ctx context.Context, layout export.Layout, w io.Writer) (int64, error) {
	if !r.Enabled {
		return 0, export.NewError(export.KindNotImpl, "template renderer is disabled", nil)
	}
	if r.Templates == nil {
		return 0, export.NewError(export.KindValidation, "template renderer requires templates", nil)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	name := r.TemplateName
	if name == "" {
		name = DefaultTemplateName
	}

	cw := &countingWriter{w: w}
	if err := r.Templates.ExecuteTemplate(cw, name, TemplateData(layout, r.Lang)); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// TemplateData builds the template context for a layout.
func TemplateData(layout export.Layout, lang string) map[string]any {
	if lang == "" {
		lang = "pt-BR"
	}
	cols := len(layout.Table.ColumnWidths)
	rows := make([][]map[string]any, len(layout.Table.RowHeights))
	for _, cell := range layout.Table.Cells {
		if rows[cell.Row] == nil {
			rows[cell.Row] = make([]map[string]any, 0, cols)
		}
		rows[cell.Row] = append(rows[cell.Row], map[string]any{
			"text":   cell.Text.Text,
			"header": cell.Header,
		})
	}

	s := layout.Style
	return map[string]any{
		"lang":    lang,
		"title":   layout.Title.Text,
		"caption": layout.Caption.Text,
		"rows":    rows,
		"style": map[string]any{
			"padding":           px(s.Padding),
			"font_size":         px(s.FontSize),
			"line_height":       strconv.FormatFloat(s.LineHeight, 'f', -1, 64),
			"title_font_size":   px(s.TitleFontSize),
			"title_gap":         px(s.TitleGap),
			"caption_font_size": px(s.CaptionFontSize),
			"caption_gap":       px(s.CaptionGap),
			"cell_padding_x":    px(s.CellPaddingX),
			"cell_padding_y":    px(s.CellPaddingY),
			"min_cell_width":    px(max(s.MinColumnWidth-2*s.CellPaddingX, 0)),
			"border_width":      px(s.BorderWidth),
			"background":        s.Background,
			"text_color":        s.TextColor,
			"border_color":      s.BorderColor,
			"header_background": s.HeaderBackground,
			"header_foreground": s.HeaderForeground,
		},
	}
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}
