package command

import (
	"context"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-gridexport/session"
)

// CreateTableHandler opens tables.
type CreateTableHandler struct {
	Service session.Service
}

func NewCreateTableHandler(svc session.Service) *CreateTableHandler {
	return &CreateTableHandler{Service: svc}
}

func (h *CreateTableHandler) Execute(ctx context.Context, msg CreateTable) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.Create(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// SetCellHandler edits cells.
type SetCellHandler struct {
	Service session.Service
}

func NewSetCellHandler(svc session.Service) *SetCellHandler {
	return &SetCellHandler{Service: svc}
}

func (h *SetCellHandler) Execute(ctx context.Context, msg SetCell) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.SetCell(ctx, msg.TableID, msg.Row, msg.Col, msg.Text)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// AddRowHandler appends rows.
type AddRowHandler struct {
	Service session.Service
}

func NewAddRowHandler(svc session.Service) *AddRowHandler {
	return &AddRowHandler{Service: svc}
}

func (h *AddRowHandler) Execute(ctx context.Context, msg AddRow) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.AddRow(ctx, msg.TableID)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// RemoveRowHandler drops trailing rows.
type RemoveRowHandler struct {
	Service session.Service
}

func NewRemoveRowHandler(svc session.Service) *RemoveRowHandler {
	return &RemoveRowHandler{Service: svc}
}

func (h *RemoveRowHandler) Execute(ctx context.Context, msg RemoveRow) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.RemoveRow(ctx, msg.TableID)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// AddColumnHandler appends columns.
type AddColumnHandler struct {
	Service session.Service
}

func NewAddColumnHandler(svc session.Service) *AddColumnHandler {
	return &AddColumnHandler{Service: svc}
}

func (h *AddColumnHandler) Execute(ctx context.Context, msg AddColumn) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.AddColumn(ctx, msg.TableID)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// RemoveColumnHandler drops trailing columns.
type RemoveColumnHandler struct {
	Service session.Service
}

func NewRemoveColumnHandler(svc session.Service) *RemoveColumnHandler {
	return &RemoveColumnHandler{Service: svc}
}

func (h *RemoveColumnHandler) Execute(ctx context.Context, msg RemoveColumn) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.RemoveColumn(ctx, msg.TableID)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// SetTitleHandler edits the title.
type SetTitleHandler struct {
	Service session.Service
}

func NewSetTitleHandler(svc session.Service) *SetTitleHandler {
	return &SetTitleHandler{Service: svc}
}

func (h *SetTitleHandler) Execute(ctx context.Context, msg SetTitle) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.SetTitle(ctx, msg.TableID, msg.Text)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// SetCaptionHandler edits the caption.
type SetCaptionHandler struct {
	Service session.Service
}

func NewSetCaptionHandler(svc session.Service) *SetCaptionHandler {
	return &SetCaptionHandler{Service: svc}
}

func (h *SetCaptionHandler) Execute(ctx context.Context, msg SetCaption) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.SetCaption(ctx, msg.TableID, msg.Text)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// RequestExportHandler freezes tables into their preview.
type RequestExportHandler struct {
	Service session.Service
}

func NewRequestExportHandler(svc session.Service) *RequestExportHandler {
	return &RequestExportHandler{Service: svc}
}

func (h *RequestExportHandler) Execute(ctx context.Context, msg RequestExport) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	view, err := h.Service.RequestExport(ctx, msg.TableID)
	if err != nil {
		return err
	}
	storeView(ctx, msg.Result, view)
	return nil
}

// DownloadExportHandler produces PDFs from previews.
type DownloadExportHandler struct {
	Service session.Service
}

func NewDownloadExportHandler(svc session.Service) *DownloadExportHandler {
	return &DownloadExportHandler{Service: svc}
}

func (h *DownloadExportHandler) Execute(ctx context.Context, msg DownloadExport) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	dl, err := h.Service.Download(ctx, msg.TableID)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = dl
	}
	if res := gcmd.ResultFromContext[session.Download](ctx); res != nil {
		res.Store(dl)
	}
	return nil
}

// CloseTableHandler discards tables.
type CloseTableHandler struct {
	Service session.Service
}

func NewCloseTableHandler(svc session.Service) *CloseTableHandler {
	return &CloseTableHandler{Service: svc}
}

func (h *CloseTableHandler) Execute(ctx context.Context, msg CloseTable) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	return h.Service.Close(ctx, msg.TableID)
}

// Expirer closes idle tables.
type Expirer interface {
	Expire(ctx context.Context, cutoff time.Time) []string
}

// Pruner removes stored artifacts created before cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ExpireTablesHandler closes idle tables and prunes old artifacts.
type ExpireTablesHandler struct {
	Tables      Expirer
	Artifacts   Pruner
	MaxIdle     time.Duration
	ArtifactTTL time.Duration
	Config      gcmd.HandlerConfig
	Clock       func() time.Time
}

func NewExpireTablesHandler(tables Expirer, artifacts Pruner) *ExpireTablesHandler {
	return &ExpireTablesHandler{
		Tables:      tables,
		Artifacts:   artifacts,
		MaxIdle:     DefaultMaxIdle,
		ArtifactTTL: DefaultArtifactTTL,
		Config:      gcmd.HandlerConfig{Expression: "*/15 * * * *"},
	}
}

func (h *ExpireTablesHandler) Execute(ctx context.Context, msg ExpireTables) error {
	if h == nil || h.Tables == nil {
		return errors.New("table expirer is required", errors.CategoryInternal).
			WithTextCode("EXPIRER_REQUIRED")
	}
	now := msg.Now
	if now.IsZero() {
		now = time.Now()
		if h.Clock != nil {
			now = h.Clock()
		}
	}

	var result ExpireResult
	if h.MaxIdle > 0 {
		result.Tables = h.Tables.Expire(ctx, now.Add(-h.MaxIdle))
	}
	if h.Artifacts != nil && h.ArtifactTTL > 0 {
		pruned, err := h.Artifacts.Prune(ctx, now.Add(-h.ArtifactTTL))
		if err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "prune artifacts failed").
				WithTextCode("PRUNE_FAILED")
		}
		result.Artifacts = pruned
	}

	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[ExpireResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

func (h *ExpireTablesHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), ExpireTables{})
	}
}

func (h *ExpireTablesHandler) CronOptions() gcmd.HandlerConfig {
	return h.Config
}

func storeView(ctx context.Context, target *session.View, view session.View) {
	if target != nil {
		*target = view
	}
	if res := gcmd.ResultFromContext[session.View](ctx); res != nil {
		res.Store(view)
	}
}

func serviceRequired() error {
	return errors.New("table service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}
