// Package session keeps one grid editor and export coordinator per table being edited.
package session

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/export/notify"
	"github.com/goliatone/go-gridexport/grid"
)

// Service exposes the editor operations of every open table.
type Service interface {
	Create(ctx context.Context, input CreateInput) (View, error)
	State(ctx context.Context, id string) (View, error)
	Close(ctx context.Context, id string) error
	SetCell(ctx context.Context, id string, row, col int, text string) (View, error)
	AddRow(ctx context.Context, id string) (View, error)
	RemoveRow(ctx context.Context, id string) (View, error)
	AddColumn(ctx context.Context, id string) (View, error)
	RemoveColumn(ctx context.Context, id string) (View, error)
	SetTitle(ctx context.Context, id, text string) (View, error)
	SetCaption(ctx context.Context, id, text string) (View, error)
	RequestExport(ctx context.Context, id string) (View, error)
	Download(ctx context.Context, id string) (Download, error)
	Preview(ctx context.Context, id string) (export.Preview, error)
	Artifact(ctx context.Context, id, key string) (io.ReadCloser, export.ArtifactMeta, error)
}

// CreateInput seeds a new table. Zero values fall back to the editor defaults.
type CreateInput struct {
	Rows    int        `json:"rows,omitempty"`
	Cols    int        `json:"cols,omitempty"`
	Cells   [][]string `json:"cells,omitempty"`
	Title   *string    `json:"title,omitempty"`
	Caption *string    `json:"caption,omitempty"`
}

// PreviewState summarizes the preview panel.
type PreviewState struct {
	Visible    bool      `json:"visible"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	Cols       int       `json:"cols,omitempty"`
	TakenAt    time.Time `json:"taken_at,omitempty"`
}

// View is the response of every session operation.
type View struct {
	ID            string                `json:"id"`
	Table         grid.State            `json:"table"`
	Preview       PreviewState          `json:"preview"`
	Exporting     bool                  `json:"exporting"`
	Artifacts     []string              `json:"artifacts"`
	Notifications []notify.Notification `json:"notifications"`
}

// Download is the outcome of an export. A failed export still carries the
// notifications it raised.
type Download struct {
	SessionID     string                `json:"session_id"`
	Result        export.Result         `json:"-"`
	Key           string                `json:"key"`
	Filename      string                `json:"filename"`
	Size          int64                 `json:"size"`
	Notifications []notify.Notification `json:"notifications"`
}

// PreviewOf summarizes p for clients.
func PreviewOf(p export.Preview) PreviewState {
	snap, ok := p.Snapshot()
	if !ok {
		return PreviewState{}
	}
	return PreviewState{
		Visible:    true,
		SnapshotID: snap.ID(),
		Title:      snap.Title(),
		Filename:   snap.Filename(),
		Rows:       snap.Rows(),
		Cols:       snap.Cols(),
		TakenAt:    snap.TakenAt(),
	}
}
