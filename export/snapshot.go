package export

import "time"

// Snapshot is an immutable copy of the grid contents and metadata at export time.
type Snapshot struct {
	id      string
	cells   [][]string
	title   string
	caption string
	takenAt time.Time
}

// NewSnapshot deep-copies cells so later edits to the source never leak in.
func NewSnapshot(id string, cells [][]string, title, caption string, takenAt time.Time) Snapshot {
	return Snapshot{
		id:      id,
		cells:   copyCells(cells),
		title:   title,
		caption: caption,
		takenAt: takenAt,
	}
}

// ID identifies the snapshot for tracing.
func (s Snapshot) ID() string {
	return s.id
}

// Title returns the title at capture time.
func (s Snapshot) Title() string {
	return s.title
}

// Caption returns the caption at capture time.
func (s Snapshot) Caption() string {
	return s.caption
}

// TakenAt returns the capture time.
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Cells returns a copy of the cell contents.
func (s Snapshot) Cells() [][]string {
	return copyCells(s.cells)
}

// IsZero reports whether the snapshot was never populated.
func (s Snapshot) IsZero() bool {
	return s.cells == nil && s.id == ""
}

// Filename returns the download filename derived from the title.
func (s Snapshot) Filename() string {
	return Filename(s.title)
}

// Rows returns the row count.
func (s Snapshot) Rows() int {
	return len(s.cells)
}

// Cols returns the column count.
func (s Snapshot) Cols() int {
	if len(s.cells) == 0 {
		return 0
	}
	return len(s.cells[0])
}

// Cell returns the cell content or an empty string when out of range.
func (s Snapshot) Cell(row, col int) string {
	if row < 0 || row >= len(s.cells) {
		return ""
	}
	if col < 0 || col >= len(s.cells[row]) {
		return ""
	}
	return s.cells[row][col]
}

func copyCells(cells [][]string) [][]string {
	if cells == nil {
		return nil
	}
	out := make([][]string, len(cells))
	for i, row := range cells {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Preview is either absent or holds exactly one snapshot.
type Preview struct {
	snapshot Snapshot
	present  bool
}

// NoPreview returns the absent preview.
func NoPreview() Preview {
	return Preview{}
}

// PreviewOf wraps a snapshot.
func PreviewOf(s Snapshot) Preview {
	return Preview{snapshot: s, present: true}
}

// Snapshot returns the held snapshot and whether one is present.
func (p Preview) Snapshot() (Snapshot, bool) {
	return p.snapshot, p.present
}

// Visible reports whether the preview should be shown.
func (p Preview) Visible() bool {
	return p.present
}
