package export

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Align is the horizontal alignment of a text block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
)

// Rect is a box in layout units (CSS pixels at scale 1).
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// TextMeasurer returns the advance width of a single line of text.
type TextMeasurer func(text string, fontSize float64) float64

// Style holds the visual parameters of the capture template.
type Style struct {
	Padding          float64
	FontSize         float64
	LineHeight       float64
	TitleFontSize    float64
	TitleGap         float64
	CaptionFontSize  float64
	CaptionGap       float64
	CellPaddingX     float64
	CellPaddingY     float64
	MinColumnWidth   float64
	BorderWidth      float64
	Background       string
	TextColor        string
	BorderColor      string
	HeaderBackground string
	HeaderForeground string
	Measure          TextMeasurer
}

// DefaultStyle mirrors the academic table look: white card, dark header row.
func DefaultStyle() Style {
	return Style{
		Padding:          32,
		FontSize:         14,
		LineHeight:       1.5,
		TitleFontSize:    16,
		TitleGap:         16,
		CaptionFontSize:  12,
		CaptionGap:       8,
		CellPaddingX:     12,
		CellPaddingY:     6,
		MinColumnWidth:   64,
		BorderWidth:      1,
		Background:       "#ffffff",
		TextColor:        "#1f2937",
		BorderColor:      "#9ca3af",
		HeaderBackground: "#1e3a5f",
		HeaderForeground: "#ffffff",
	}
}

func (s Style) withDefaults() Style {
	def := DefaultStyle()
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.LineHeight <= 0 {
		s.LineHeight = def.LineHeight
	}
	if s.TitleFontSize <= 0 {
		s.TitleFontSize = def.TitleFontSize
	}
	if s.CaptionFontSize <= 0 {
		s.CaptionFontSize = def.CaptionFontSize
	}
	if s.Padding < 0 {
		s.Padding = 0
	}
	if s.MinColumnWidth <= 0 {
		s.MinColumnWidth = def.MinColumnWidth
	}
	if s.Background == "" {
		s.Background = def.Background
	}
	if s.TextColor == "" {
		s.TextColor = def.TextColor
	}
	if s.BorderColor == "" {
		s.BorderColor = def.BorderColor
	}
	if s.HeaderBackground == "" {
		s.HeaderBackground = def.HeaderBackground
	}
	if s.HeaderForeground == "" {
		s.HeaderForeground = def.HeaderForeground
	}
	if s.Measure == nil {
		s.Measure = EstimateTextWidth
	}
	return s
}

// EstimateTextWidth approximates a proportional font at 0.6em per rune.
func EstimateTextWidth(text string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(text)) * fontSize * 0.6
}

// TextBlock is a positioned run of text.
type TextBlock struct {
	Text     string
	Lines    []string
	Box      Rect
	FontSize float64
	Bold     bool
	Align    Align
	Color    string
}

// CellBox is a positioned table cell.
type CellBox struct {
	Row    int
	Col    int
	Box    Rect
	Text   TextBlock
	Header bool
	Fill   string
}

// TableLayout is the table geometry.
type TableLayout struct {
	Box          Rect
	ColumnWidths []float64
	RowHeights   []float64
	Cells        []CellBox
}

// Layout is the drawable description of a snapshot.
type Layout struct {
	Width   float64
	Height  float64
	Title   TextBlock
	Table   TableLayout
	Caption TextBlock
	Style   Style
}

// Cell returns the cell box at row, col.
func (l Layout) Cell(row, col int) (CellBox, bool) {
	cols := len(l.Table.ColumnWidths)
	if row < 0 || col < 0 || col >= cols {
		return CellBox{}, false
	}
	idx := row*cols + col
	if idx >= len(l.Table.Cells) {
		return CellBox{}, false
	}
	return l.Table.Cells[idx], true
}

// BuildLayout computes the capture geometry: a centred title, the table with
// the first row flagged as header, and a centred caption below.
// It has no side effects.
func BuildLayout(snap Snapshot, style Style) Layout {
	style = style.withDefaults()
	cells := snap.Cells()
	rows := len(cells)
	cols := 0
	if rows > 0 {
		cols = len(cells[0])
	}

	colWidths := make([]float64, cols)
	for c := range colWidths {
		colWidths[c] = style.MinColumnWidth
	}
	rowHeights := make([]float64, rows)
	lineHeight := style.FontSize * style.LineHeight

	for r, row := range cells {
		maxLines := 1
		for c, text := range row {
			if c >= cols {
				break
			}
			lines := splitLines(text)
			if len(lines) > maxLines {
				maxLines = len(lines)
			}
			w := widestLine(lines, style.FontSize, style.Measure) + 2*style.CellPaddingX
			if w > colWidths[c] {
				colWidths[c] = w
			}
		}
		rowHeights[r] = float64(maxLines)*lineHeight + 2*style.CellPaddingY
	}

	tableW := sum(colWidths)
	tableH := sum(rowHeights)

	titleLines := splitLines(snap.Title())
	titleW := widestLine(titleLines, style.TitleFontSize, style.Measure)
	titleH := float64(len(titleLines)) * style.TitleFontSize * style.LineHeight

	captionLines := splitLines(snap.Caption())
	captionW := widestLine(captionLines, style.CaptionFontSize, style.Measure)
	captionH := float64(len(captionLines)) * style.CaptionFontSize * style.LineHeight

	contentW := math.Max(tableW, math.Max(titleW, captionW))
	width := contentW + 2*style.Padding
	y := style.Padding

	title := TextBlock{
		Text:     snap.Title(),
		Lines:    titleLines,
		Box:      Rect{X: style.Padding, Y: y, W: contentW, H: titleH},
		FontSize: style.TitleFontSize,
		Bold:     true,
		Align:    AlignCenter,
		Color:    style.TextColor,
	}
	y += titleH + style.TitleGap

	tableX := style.Padding + (contentW-tableW)/2
	table := TableLayout{
		Box:          Rect{X: tableX, Y: y, W: tableW, H: tableH},
		ColumnWidths: colWidths,
		RowHeights:   rowHeights,
		Cells:        make([]CellBox, 0, rows*cols),
	}
	cy := y
	for r := 0; r < rows; r++ {
		cx := tableX
		header := r == 0
		fill := style.Background
		color := style.TextColor
		if header {
			fill = style.HeaderBackground
			color = style.HeaderForeground
		}
		for c := 0; c < cols; c++ {
			box := Rect{X: cx, Y: cy, W: colWidths[c], H: rowHeights[r]}
			text := cells[r][c]
			table.Cells = append(table.Cells, CellBox{
				Row:    r,
				Col:    c,
				Box:    box,
				Header: header,
				Fill:   fill,
				Text: TextBlock{
					Text:  text,
					Lines: splitLines(text),
					Box: Rect{
						X: cx + style.CellPaddingX,
						Y: cy + style.CellPaddingY,
						W: colWidths[c] - 2*style.CellPaddingX,
						H: rowHeights[r] - 2*style.CellPaddingY,
					},
					FontSize: style.FontSize,
					Bold:     header,
					Align:    AlignLeft,
					Color:    color,
				},
			})
			cx += colWidths[c]
		}
		cy += rowHeights[r]
	}
	y += tableH + style.CaptionGap

	caption := TextBlock{
		Text:     snap.Caption(),
		Lines:    captionLines,
		Box:      Rect{X: style.Padding, Y: y, W: contentW, H: captionH},
		FontSize: style.CaptionFontSize,
		Align:    AlignCenter,
		Color:    style.TextColor,
	}
	y += captionH + style.Padding

	return Layout{
		Width:   width,
		Height:  y,
		Title:   title,
		Table:   table,
		Caption: caption,
		Style:   style,
	}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func widestLine(lines []string, fontSize float64, measure TextMeasurer) float64 {
	widest := 0.0
	for _, line := range lines {
		if w := measure(line, fontSize); w > widest {
			widest = w
		}
	}
	return widest
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
