package exportformgen

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-gridexport/grid"
)

// Field defines a form field for formgen-style UIs.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder,omitempty"`
	Action      string `json:"action"`
	Method      string `json:"method"`
	Hint        string `json:"hint,omitempty"`
}

// Form groups the table metadata inputs.
type Form struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Button maps a toolbar action to an HTTP endpoint.
type Button struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Icon     string `json:"icon,omitempty"`
	Method   string `json:"method"`
	Action   string `json:"action"`
	Disabled bool   `json:"disabled,omitempty"`
}

// CellInput is one editable grid cell.
type CellInput struct {
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
	Header      bool   `json:"header,omitempty"`
	Action      string `json:"action"`
	Method      string `json:"method"`
}

// Grid describes the cell inputs of the editor.
type Grid struct {
	ID    string        `json:"id"`
	Rows  int           `json:"rows"`
	Cols  int           `json:"cols"`
	Cells [][]CellInput `json:"cells"`
}

// Theme captures optional theme tokens for the editor.
type Theme struct {
	Name   string            `json:"name"`
	Tokens map[string]string `json:"tokens"`
}

// Labels holds the literal strings shown by the editor.
type Labels struct {
	Heading      string
	Metadata     string
	Title        string
	TitleHint    string
	Caption      string
	AddRow       string
	RemoveRow    string
	AddColumn    string
	RemoveColumn string
	Export       string
	Download     string
	Preview      string
	CellFormat   string
}

// UI bundles the widgets of one table editor.
type UI struct {
	Heading    string   `json:"heading"`
	Metadata   Form     `json:"metadata"`
	Toolbar    []Button `json:"toolbar"`
	Grid       Grid     `json:"grid"`
	Export     Button   `json:"export"`
	Download   Button   `json:"download"`
	Preview    string   `json:"preview"`
	PreviewURL string   `json:"preview_url"`
	Visible    bool     `json:"preview_visible"`
	Theme      Theme    `json:"theme"`
}

// DefaultLabels returns the literal pt-BR editor labels.
func DefaultLabels() Labels {
	return Labels{
		Heading:      "Editor de Tabela",
		Metadata:     "Metadados da tabela",
		Title:        "Título da Tabela (ABNT):",
		TitleHint:    "Título da tabela",
		Caption:      "Legenda/Fonte (ABNT):",
		AddRow:       "Linha",
		RemoveRow:    "Linha",
		AddColumn:    "Coluna",
		RemoveColumn: "Coluna",
		Export:       "Exportar para PDF",
		Download:     "Baixar PDF",
		Preview:      "Prévia da Tabela (formato ABNT2)",
		CellFormat:   "Célula %d,%d",
	}
}

// EditorUI builds the widget contract for the table at basePath/id.
func EditorUI(basePath, id string, state grid.State, previewVisible bool, labels Labels) UI {
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		basePath = "/tables"
	}
	if labels.CellFormat == "" {
		labels = DefaultLabels()
	}
	root := fmt.Sprintf("%s/%s", basePath, id)

	return UI{
		Heading:  labels.Heading,
		Metadata: MetadataForm(root, state, labels),
		Toolbar: []Button{
			{ID: "add-row", Label: labels.AddRow, Icon: "plus", Method: "POST", Action: root + "/rows"},
			{ID: "remove-row", Label: labels.RemoveRow, Icon: "minus", Method: "DELETE", Action: root + "/rows", Disabled: state.Rows <= 1},
			{ID: "add-column", Label: labels.AddColumn, Icon: "plus", Method: "POST", Action: root + "/columns"},
			{ID: "remove-column", Label: labels.RemoveColumn, Icon: "minus", Method: "DELETE", Action: root + "/columns", Disabled: state.Cols <= 1},
		},
		Grid:       CellGrid(root, state, labels),
		Export:     Button{ID: "export", Label: labels.Export, Icon: "file-down", Method: "POST", Action: root + "/export"},
		Download:   Button{ID: "download", Label: labels.Download, Icon: "download", Method: "GET", Action: root + "/download", Disabled: !previewVisible},
		Preview:    labels.Preview,
		PreviewURL: root + "/preview",
		Visible:    previewVisible,
		Theme:      DefaultTheme(),
	}
}

// MetadataForm builds the title and caption inputs.
func MetadataForm(root string, state grid.State, labels Labels) Form {
	return Form{
		ID:    "table-metadata",
		Title: labels.Metadata,
		Fields: []Field{
			{Name: "title", Label: labels.Title, Type: "text", Value: state.Title, Placeholder: labels.TitleHint, Action: root + "/title", Method: "PUT"},
			{Name: "caption", Label: labels.Caption, Type: "text", Value: state.Caption, Placeholder: grid.DefaultCaption, Action: root + "/caption", Method: "PUT"},
		},
	}
}

// CellGrid builds one input per cell. Row 0 is flagged as the header.
func CellGrid(root string, state grid.State, labels Labels) Grid {
	cells := make([][]CellInput, len(state.Cells))
	for r, row := range state.Cells {
		cells[r] = make([]CellInput, len(row))
		for c, value := range row {
			cells[r][c] = CellInput{
				Row:         r,
				Col:         c,
				Value:       value,
				Placeholder: fmt.Sprintf(labels.CellFormat, r, c),
				Header:      r == 0,
				Action:      fmt.Sprintf("%s/cells/%d/%d", root, r, c),
				Method:      "PUT",
			}
		}
	}
	return Grid{ID: "table-cells", Rows: state.Rows, Cols: state.Cols, Cells: cells}
}

// DefaultTheme mirrors the capture style colors.
func DefaultTheme() Theme {
	return Theme{
		Name: "abnt",
		Tokens: map[string]string{
			"primary":   "#1e3a5f",
			"highlight": "#2c5282",
			"surface":   "#ffffff",
			"text":      "#1f2937",
			"border":    "#9ca3af",
			"header":    "#1e3a5f",
			"header_fg": "#ffffff",
			"danger":    "#b91c1c",
		},
	}
}
