package query

import (
	"github.com/goliatone/go-errors"
)

// TableState requests the current state of a table.
type TableState struct {
	TableID string
}

func (TableState) Type() string { return "table:state" }

func (msg TableState) Validate() error { return requireTable(msg.TableID) }

// PreviewState requests the preview panel of a table.
type PreviewState struct {
	TableID string
}

func (PreviewState) Type() string { return "table:preview" }

func (msg PreviewState) Validate() error { return requireTable(msg.TableID) }

// ArtifactInfo requests metadata of a stored PDF.
type ArtifactInfo struct {
	TableID string
	Key     string
}

func (ArtifactInfo) Type() string { return "table:artifact" }

func (msg ArtifactInfo) Validate() error {
	if err := requireTable(msg.TableID); err != nil {
		return err
	}
	if msg.Key == "" {
		return errors.New("artifact key is required", errors.CategoryValidation).
			WithTextCode("ARTIFACT_KEY_REQUIRED")
	}
	return nil
}

func requireTable(id string) error {
	if id == "" {
		return errors.New("table ID is required", errors.CategoryValidation).
			WithTextCode("TABLE_ID_REQUIRED")
	}
	return nil
}
