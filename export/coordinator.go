package export

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runner runs an export for a snapshot.
type Runner interface {
	Export(ctx context.Context, snap Snapshot) (Result, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(ctx context.Context, snap Snapshot) (Result, error)

func (f RunnerFunc) Export(ctx context.Context, snap Snapshot) (Result, error) {
	return f(ctx, snap)
}

// Coordinator holds the current preview and admits one export at a time.
type Coordinator struct {
	mu      sync.RWMutex
	preview Preview
	running atomic.Bool
	Emitter ChangeEmitter
}

// NewCoordinator creates a coordinator with no preview.
func NewCoordinator() *Coordinator {
	return &Coordinator{preview: NoPreview()}
}

// Receive replaces the stored preview with the snapshot and makes it visible.
func (c *Coordinator) Receive(ctx context.Context, snap Snapshot) (Preview, error) {
	preview := PreviewOf(snap)
	c.mu.Lock()
	c.preview = preview
	c.mu.Unlock()

	if c.Emitter != nil {
		_ = c.Emitter.Emit(ctx, ChangeEvent{
			Name:       "export.requested",
			SnapshotID: snap.ID(),
			Format:     FormatPDF,
			Timestamp:  snap.TakenAt(),
			Metadata: map[string]any{
				"rows": snap.Rows(),
				"cols": snap.Cols(),
			},
		})
	}
	return preview, nil
}

// Current returns the stored preview.
func (c *Coordinator) Current() Preview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preview
}

// Busy reports whether an export is running.
func (c *Coordinator) Busy() bool {
	return c.running.Load()
}

// Export runs the runner on the current snapshot.
// A second call while one is in flight fails with a conflict error.
func (c *Coordinator) Export(ctx context.Context, runner Runner) (Result, error) {
	if runner == nil {
		return Result{}, AsGoError(NewError(KindInternal, "export runner is not configured", nil))
	}
	snap, ok := c.Current().Snapshot()
	if !ok {
		return Result{}, AsGoError(NewError(KindValidation, "no export has been requested", nil).WithCode("no_preview"))
	}
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, AsGoError(NewError(KindConflict, "an export is already in progress", nil).WithCode("export_in_progress"))
	}
	defer c.running.Store(false)

	return runner.Export(ctx, snap)
}
