package query

import (
	"context"
	"errors"
	"testing"

	errorslib "github.com/goliatone/go-errors"

	exportpdf "github.com/goliatone/go-gridexport/adapters/pdf"
	"github.com/goliatone/go-gridexport/adapters/raster"
	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/session"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	exporter := export.NewExporter(raster.New(), exportpdf.NewFPDFFactory(), export.NewMemoryStore())
	exporter.Capture.Scale = 1
	return session.NewManager(session.Config{Exporter: exporter})
}

func TestPreviewStateHandler_KeepsNotifications(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	view, err := manager.Create(ctx, session.CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	preview, err := NewPreviewStateHandler(manager).Query(ctx, PreviewState{TableID: view.ID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if preview.Visible {
		t.Fatalf("expected hidden preview before export request")
	}

	if _, err := manager.AddRow(ctx, view.ID); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if _, err := manager.RequestExport(ctx, view.ID); err != nil {
		t.Fatalf("request export: %v", err)
	}
	if _, err := manager.AddRow(ctx, view.ID); err != nil {
		t.Fatalf("add row: %v", err)
	}

	preview, err = NewPreviewStateHandler(manager).Query(ctx, PreviewState{TableID: view.ID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !preview.Visible || preview.Rows != 4 || preview.Filename != "Tabela_1.pdf" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	state, err := NewTableStateHandler(manager).Query(ctx, TableState{TableID: view.ID})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Table.Rows != 5 {
		t.Fatalf("expected live table to keep changing, got %d rows", state.Table.Rows)
	}
}

func TestArtifactInfoHandler(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	view, _ := manager.Create(ctx, session.CreateInput{})
	if _, err := manager.RequestExport(ctx, view.ID); err != nil {
		t.Fatalf("request export: %v", err)
	}
	dl, err := manager.Download(ctx, view.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	meta, err := NewArtifactInfoHandler(manager).Query(ctx, ArtifactInfo{TableID: view.ID, Key: dl.Key})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.ContentType != "application/pdf" || meta.Filename != "Tabela_1.pdf" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	_, err = NewArtifactInfoHandler(manager).Query(ctx, ArtifactInfo{TableID: view.ID, Key: "exp-other"})
	if export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQueries_Validate(t *testing.T) {
	var goErr *errorslib.Error
	if err := (ArtifactInfo{TableID: "t"}).Validate(); !errors.As(err, &goErr) || goErr.TextCode != "ARTIFACT_KEY_REQUIRED" {
		t.Fatalf("expected ARTIFACT_KEY_REQUIRED, got %v", err)
	}
	if err := (TableState{}).Validate(); !errors.As(err, &goErr) || goErr.TextCode != "TABLE_ID_REQUIRED" {
		t.Fatalf("expected TABLE_ID_REQUIRED, got %v", err)
	}
	if _, err := NewTableStateHandler(nil).Query(context.Background(), TableState{TableID: "t"}); err == nil {
		t.Fatalf("expected service error")
	}
}
