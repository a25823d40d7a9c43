package exportformgen

import (
	"testing"

	"github.com/goliatone/go-gridexport/grid"
)

func TestEditorUI(t *testing.T) {
	state := grid.State{
		Rows:    2,
		Cols:    1,
		Cells:   [][]string{{"Ano"}, {"2020"}},
		Title:   "Tabela 1",
		Caption: "Fonte",
	}
	ui := EditorUI("/tables/", "abc", state, false, DefaultLabels())

	if ui.Grid.Cells[1][0].Action != "/tables/abc/cells/1/0" {
		t.Fatalf("unexpected cell action %q", ui.Grid.Cells[1][0].Action)
	}
	if ui.Grid.Cells[0][0].Placeholder != "Célula 0,0" || !ui.Grid.Cells[0][0].Header {
		t.Fatalf("unexpected header cell %+v", ui.Grid.Cells[0][0])
	}
	if ui.Grid.Cells[1][0].Header {
		t.Fatalf("expected only row 0 flagged as header")
	}

	byID := map[string]Button{}
	for _, b := range ui.Toolbar {
		byID[b.ID] = b
	}
	if byID["remove-row"].Disabled {
		t.Fatalf("expected remove-row enabled with two rows")
	}
	if !byID["remove-column"].Disabled {
		t.Fatalf("expected remove-column disabled with one column")
	}
	if !ui.Download.Disabled {
		t.Fatalf("expected download disabled without preview")
	}
	if ui.Metadata.Fields[0].Value != "Tabela 1" || ui.Metadata.Fields[1].Action != "/tables/abc/caption" {
		t.Fatalf("unexpected metadata form %+v", ui.Metadata)
	}
}

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()
	if labels.Export != "Exportar para PDF" || labels.CellFormat != "Célula %d,%d" {
		t.Fatalf("unexpected labels %+v", labels)
	}
}
