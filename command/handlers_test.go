package command

import (
	"context"
	"errors"
	"testing"
	"time"

	gcmd "github.com/goliatone/go-command"
	errorslib "github.com/goliatone/go-errors"

	exportpdf "github.com/goliatone/go-gridexport/adapters/pdf"
	"github.com/goliatone/go-gridexport/adapters/raster"
	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/session"
)

func newTestManager(t *testing.T) (*session.Manager, *export.MemoryStore) {
	t.Helper()
	store := export.NewMemoryStore()
	exporter := export.NewExporter(raster.New(), exportpdf.NewFPDFFactory(), store)
	exporter.Capture.Scale = 1
	return session.NewManager(session.Config{Exporter: exporter}), store
}

func TestCreateTableHandler_StoresResults(t *testing.T) {
	manager, _ := newTestManager(t)
	handler := NewCreateTableHandler(manager)

	var got session.View
	result := gcmd.NewResult[session.View]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	if err := handler.Execute(ctx, CreateTable{Input: session.CreateInput{Rows: 2, Cols: 5}, Result: &got}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.ID == "" || got.Table.Rows != 2 || got.Table.Cols != 5 {
		t.Fatalf("unexpected result pointer %+v", got.Table)
	}

	stored, ok := result.Load()
	if !ok {
		t.Fatalf("expected context result")
	}
	if stored.ID != got.ID {
		t.Fatalf("expected context result %q, got %q", got.ID, stored.ID)
	}
}

func TestTableCommands_EditAndDownload(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	var view session.View
	if err := NewCreateTableHandler(manager).Execute(ctx, CreateTable{Result: &view}); err != nil {
		t.Fatalf("create: %v", err)
	}
	id := view.ID

	if err := NewSetCellHandler(manager).Execute(ctx, SetCell{TableID: id, Row: 0, Col: 0, Text: "Ano", Result: &view}); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := NewAddRowHandler(manager).Execute(ctx, AddRow{TableID: id}); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := NewAddColumnHandler(manager).Execute(ctx, AddColumn{TableID: id}); err != nil {
		t.Fatalf("add column: %v", err)
	}
	if err := NewRemoveRowHandler(manager).Execute(ctx, RemoveRow{TableID: id}); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if err := NewRemoveColumnHandler(manager).Execute(ctx, RemoveColumn{TableID: id, Result: &view}); err != nil {
		t.Fatalf("remove column: %v", err)
	}
	if view.Table.Rows != 3 || view.Table.Cols != 3 || view.Table.Cells[0][0] != "Ano" {
		t.Fatalf("unexpected table %+v", view.Table)
	}

	if err := NewSetTitleHandler(manager).Execute(ctx, SetTitle{TableID: id, Text: "Tabela 7"}); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := NewSetCaptionHandler(manager).Execute(ctx, SetCaption{TableID: id, Text: "Fonte: IBGE."}); err != nil {
		t.Fatalf("set caption: %v", err)
	}
	if err := NewRequestExportHandler(manager).Execute(ctx, RequestExport{TableID: id, Result: &view}); err != nil {
		t.Fatalf("request export: %v", err)
	}
	if !view.Preview.Visible || view.Preview.Filename != "Tabela_7.pdf" {
		t.Fatalf("unexpected preview %+v", view.Preview)
	}

	var dl session.Download
	if err := NewDownloadExportHandler(manager).Execute(ctx, DownloadExport{TableID: id, Result: &dl}); err != nil {
		t.Fatalf("download: %v", err)
	}
	if dl.Filename != "Tabela_7.pdf" || dl.Size == 0 {
		t.Fatalf("unexpected download %+v", dl)
	}
	if len(store.Keys()) != 1 {
		t.Fatalf("expected one stored artifact, got %v", store.Keys())
	}

	if err := NewCloseTableHandler(manager).Execute(ctx, CloseTable{TableID: id}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected artifacts removed on close, got %v", store.Keys())
	}
}

func TestHandlers_RequireService(t *testing.T) {
	err := NewSetTitleHandler(nil).Execute(context.Background(), SetTitle{TableID: "t"})
	var goErr *errorslib.Error
	if !errors.As(err, &goErr) || goErr.TextCode != "SERVICE_REQUIRED" {
		t.Fatalf("expected SERVICE_REQUIRED, got %v", err)
	}
}

func TestMessages_Validate(t *testing.T) {
	cases := []struct {
		name string
		msg  interface{ Validate() error }
		code string
	}{
		{"missing table", AddRow{}, "TABLE_ID_REQUIRED"},
		{"negative cell", SetCell{TableID: "t", Row: -1}, "CELL_OUT_OF_RANGE"},
		{"negative dimensions", CreateTable{Input: session.CreateInput{Rows: -1}}, "INVALID_DIMENSIONS"},
		{"valid", SetTitle{TableID: "t", Text: ""}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.code == "" {
				if err != nil {
					t.Fatalf("expected valid message, got %v", err)
				}
				return
			}
			var goErr *errorslib.Error
			if !errors.As(err, &goErr) || goErr.TextCode != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

type stubExpirer struct {
	cutoff time.Time
	ids    []string
}

func (s *stubExpirer) Expire(ctx context.Context, cutoff time.Time) []string {
	_ = ctx
	s.cutoff = cutoff
	return s.ids
}

type stubPruner struct {
	cutoff time.Time
	keys   []string
	err    error
}

func (s *stubPruner) Prune(ctx context.Context, cutoff time.Time) ([]string, error) {
	_ = ctx
	s.cutoff = cutoff
	return s.keys, s.err
}

func TestExpireTablesHandler_UsesCutoffs(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tables := &stubExpirer{ids: []string{"t-1"}}
	artifacts := &stubPruner{keys: []string{"exp-1"}}

	handler := NewExpireTablesHandler(tables, artifacts)
	handler.Clock = func() time.Time { return now }

	var got ExpireResult
	if err := handler.Execute(context.Background(), ExpireTables{Result: &got}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !tables.cutoff.Equal(now.Add(-DefaultMaxIdle)) {
		t.Fatalf("unexpected idle cutoff %v", tables.cutoff)
	}
	if !artifacts.cutoff.Equal(now.Add(-DefaultArtifactTTL)) {
		t.Fatalf("unexpected artifact cutoff %v", artifacts.cutoff)
	}
	if len(got.Tables) != 1 || len(got.Artifacts) != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
	if handler.CronOptions().Expression == "" {
		t.Fatalf("expected cron expression")
	}
}

func TestExpireTablesHandler_PruneFailure(t *testing.T) {
	handler := NewExpireTablesHandler(&stubExpirer{}, &stubPruner{err: context.DeadlineExceeded})
	err := handler.Execute(context.Background(), ExpireTables{Now: time.Now()})
	var goErr *errorslib.Error
	if !errors.As(err, &goErr) || goErr.TextCode != "PRUNE_FAILED" {
		t.Fatalf("expected PRUNE_FAILED, got %v", err)
	}
}
