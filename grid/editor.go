package grid

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/export/notify"
)

// Handoff receives export snapshots.
type Handoff interface {
	Receive(ctx context.Context, snap export.Snapshot) (export.Preview, error)
}

// State is a read model of the editor.
type State struct {
	Rows    int        `json:"rows"`
	Cols    int        `json:"cols"`
	Cells   [][]string `json:"cells"`
	Title   string     `json:"title"`
	Caption string     `json:"caption"`
}

// Config seeds a new editor.
type Config struct {
	Rows     int
	Cols     int
	Title    *string
	Caption  *string
	Notifier notify.Notifier
	Messages notify.Catalog
	Handoff  Handoff
	Now      func() time.Time
}

// Editor owns the grid and its metadata. Mutations are serialized.
type Editor struct {
	mu       sync.Mutex
	grid     *Grid
	title    string
	caption  string
	notifier notify.Notifier
	messages notify.Catalog
	handoff  Handoff
	now      func() time.Time
}

// NewEditor creates an editor seeded with the config, falling back to a
// 3x3 empty grid titled "Tabela 1".
func NewEditor(cfg Config) (*Editor, error) {
	rows, cols := cfg.Rows, cfg.Cols
	if rows == 0 {
		rows = DefaultRows
	}
	if cols == 0 {
		cols = DefaultCols
	}
	g, err := New(rows, cols)
	if err != nil {
		return nil, err
	}

	title := DefaultTitle
	if cfg.Title != nil {
		title = *cfg.Title
	}
	caption := DefaultCaption
	if cfg.Caption != nil {
		caption = *cfg.Caption
	}

	e := &Editor{
		grid:     g,
		title:    title,
		caption:  caption,
		notifier: cfg.Notifier,
		messages: cfg.Messages,
		handoff:  cfg.Handoff,
		now:      cfg.Now,
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// SetCell replaces one cell. Out-of-range positions are rejected.
func (e *Editor) SetCell(ctx context.Context, row, col int, text string) error {
	_ = ctx
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.SetCell(row, col, text)
}

// AddRow appends an empty row.
func (e *Editor) AddRow(ctx context.Context) {
	e.mu.Lock()
	e.grid.AddRow()
	e.mu.Unlock()
	e.notify(ctx, notify.KeyRowAdded)
}

// RemoveRow drops the last row unless only one remains.
func (e *Editor) RemoveRow(ctx context.Context) bool {
	e.mu.Lock()
	removed := e.grid.RemoveRow()
	e.mu.Unlock()
	if removed {
		e.notify(ctx, notify.KeyRowRemoved)
	}
	return removed
}

// AddColumn appends an empty column.
func (e *Editor) AddColumn(ctx context.Context) {
	e.mu.Lock()
	e.grid.AddColumn()
	e.mu.Unlock()
	e.notify(ctx, notify.KeyColumnAdded)
}

// RemoveColumn drops the last column unless only one remains.
func (e *Editor) RemoveColumn(ctx context.Context) bool {
	e.mu.Lock()
	removed := e.grid.RemoveColumn()
	e.mu.Unlock()
	if removed {
		e.notify(ctx, notify.KeyColumnRemoved)
	}
	return removed
}

// SetTitle replaces the title verbatim.
func (e *Editor) SetTitle(ctx context.Context, text string) {
	_ = ctx
	e.mu.Lock()
	e.title = text
	e.mu.Unlock()
}

// SetCaption replaces the caption verbatim.
func (e *Editor) SetCaption(ctx context.Context, text string) {
	_ = ctx
	e.mu.Lock()
	e.caption = text
	e.mu.Unlock()
}

// Snapshot copies the current cells, title and caption.
func (e *Editor) Snapshot() export.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return export.NewSnapshot(uuid.NewString(), e.grid.Values(), e.title, e.caption, e.now())
}

// RequestExport takes a snapshot and hands it to the coordinator.
func (e *Editor) RequestExport(ctx context.Context) (export.Snapshot, export.Preview, error) {
	snap := e.Snapshot()
	if e.handoff == nil {
		return snap, export.NoPreview(), export.NewError(export.KindInternal, "export handoff is not configured", nil)
	}
	preview, err := e.handoff.Receive(ctx, snap)
	if err != nil {
		return snap, export.NoPreview(), err
	}
	return snap, preview, nil
}

// State returns the current read model.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Rows:    e.grid.Rows(),
		Cols:    e.grid.Cols(),
		Cells:   e.grid.Values(),
		Title:   e.title,
		Caption: e.caption,
	}
}

func (e *Editor) notify(ctx context.Context, key notify.Key) {
	_ = e.notifier.Notify(ctx, e.messages.Message(key))
}
