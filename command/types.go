package command

import (
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-gridexport/session"
)

// CreateTable opens a new table editor.
type CreateTable struct {
	Input  session.CreateInput
	Result *session.View
}

func (CreateTable) Type() string { return "table:create" }

func (msg CreateTable) Validate() error {
	if msg.Input.Rows < 0 || msg.Input.Cols < 0 {
		return errors.New("rows and cols must not be negative", errors.CategoryValidation).
			WithTextCode("INVALID_DIMENSIONS")
	}
	return nil
}

// SetCell replaces the text of one cell.
type SetCell struct {
	TableID string
	Row     int
	Col     int
	Text    string
	Result  *session.View
}

func (SetCell) Type() string { return "table:set_cell" }

func (msg SetCell) Validate() error {
	if err := requireTable(msg.TableID); err != nil {
		return err
	}
	if msg.Row < 0 || msg.Col < 0 {
		return errors.New("cell position must not be negative", errors.CategoryValidation).
			WithTextCode("CELL_OUT_OF_RANGE")
	}
	return nil
}

// AddRow appends an empty row.
type AddRow struct {
	TableID string
	Result  *session.View
}

func (AddRow) Type() string { return "table:add_row" }

func (msg AddRow) Validate() error { return requireTable(msg.TableID) }

// RemoveRow drops the last row.
type RemoveRow struct {
	TableID string
	Result  *session.View
}

func (RemoveRow) Type() string { return "table:remove_row" }

func (msg RemoveRow) Validate() error { return requireTable(msg.TableID) }

// AddColumn appends an empty column.
type AddColumn struct {
	TableID string
	Result  *session.View
}

func (AddColumn) Type() string { return "table:add_column" }

func (msg AddColumn) Validate() error { return requireTable(msg.TableID) }

// RemoveColumn drops the last column.
type RemoveColumn struct {
	TableID string
	Result  *session.View
}

func (RemoveColumn) Type() string { return "table:remove_column" }

func (msg RemoveColumn) Validate() error { return requireTable(msg.TableID) }

// SetTitle replaces the table title.
type SetTitle struct {
	TableID string
	Text    string
	Result  *session.View
}

func (SetTitle) Type() string { return "table:set_title" }

func (msg SetTitle) Validate() error { return requireTable(msg.TableID) }

// SetCaption replaces the table caption.
type SetCaption struct {
	TableID string
	Text    string
	Result  *session.View
}

func (SetCaption) Type() string { return "table:set_caption" }

func (msg SetCaption) Validate() error { return requireTable(msg.TableID) }

// RequestExport freezes the table into the preview.
type RequestExport struct {
	TableID string
	Result  *session.View
}

func (RequestExport) Type() string { return "table:request_export" }

func (msg RequestExport) Validate() error { return requireTable(msg.TableID) }

// DownloadExport renders the preview into a stored PDF.
type DownloadExport struct {
	TableID string
	Result  *session.Download
}

func (DownloadExport) Type() string { return "table:download" }

func (msg DownloadExport) Validate() error { return requireTable(msg.TableID) }

// CloseTable discards a table and its artifacts.
type CloseTable struct {
	TableID string
}

func (CloseTable) Type() string { return "table:close" }

func (msg CloseTable) Validate() error { return requireTable(msg.TableID) }

// ExpireTables closes idle tables and prunes stale artifacts.
type ExpireTables struct {
	Now    time.Time
	Result *ExpireResult
}

func (ExpireTables) Type() string { return "table:expire" }

func (ExpireTables) Validate() error { return nil }

// ExpireResult lists what an expiry pass removed.
type ExpireResult struct {
	Tables    []string
	Artifacts []string
}

func requireTable(id string) error {
	if id == "" {
		return errors.New("table ID is required", errors.CategoryValidation).
			WithTextCode("TABLE_ID_REQUIRED")
	}
	return nil
}
