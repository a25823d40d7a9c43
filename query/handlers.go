package query

import (
	"context"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/session"
)

// TableStateHandler returns the view of a single table.
type TableStateHandler struct {
	Service session.Service
}

func NewTableStateHandler(svc session.Service) *TableStateHandler {
	return &TableStateHandler{Service: svc}
}

func (h *TableStateHandler) Query(ctx context.Context, msg TableState) (session.View, error) {
	if h == nil || h.Service == nil {
		return session.View{}, serviceRequired()
	}
	return h.Service.State(ctx, msg.TableID)
}

// PreviewStateHandler returns the preview summary without draining notifications.
type PreviewStateHandler struct {
	Service session.Service
}

func NewPreviewStateHandler(svc session.Service) *PreviewStateHandler {
	return &PreviewStateHandler{Service: svc}
}

func (h *PreviewStateHandler) Query(ctx context.Context, msg PreviewState) (session.PreviewState, error) {
	if h == nil || h.Service == nil {
		return session.PreviewState{}, serviceRequired()
	}
	preview, err := h.Service.Preview(ctx, msg.TableID)
	if err != nil {
		return session.PreviewState{}, err
	}
	return session.PreviewOf(preview), nil
}

// ArtifactInfoHandler returns stored artifact metadata.
type ArtifactInfoHandler struct {
	Service session.Service
}

func NewArtifactInfoHandler(svc session.Service) *ArtifactInfoHandler {
	return &ArtifactInfoHandler{Service: svc}
}

func (h *ArtifactInfoHandler) Query(ctx context.Context, msg ArtifactInfo) (export.ArtifactMeta, error) {
	if h == nil || h.Service == nil {
		return export.ArtifactMeta{}, serviceRequired()
	}
	reader, meta, err := h.Service.Artifact(ctx, msg.TableID, msg.Key)
	if err != nil {
		return export.ArtifactMeta{}, err
	}
	_ = reader.Close()
	return meta, nil
}

func serviceRequired() error {
	return errors.New("table service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}
