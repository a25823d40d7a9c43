package session

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/export/notify"
	"github.com/goliatone/go-gridexport/grid"
)

// DefaultLimit caps the number of open sessions.
const DefaultLimit = 1024

// DefaultMaxSeedCells caps rows*cols of a newly created table.
const DefaultMaxSeedCells = 10000

// Config supplies dependencies for Manager.
type Config struct {
	Exporter     *export.Exporter
	Messages     notify.Catalog
	Notifier     notify.Notifier
	Emitter      export.ChangeEmitter
	Logger       export.Logger
	QueueLimit   int
	Limit        int
	MaxSeedCells int
	Now          func() time.Time
	IDGenerator  func() string
}

// Manager implements Service with in-memory sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	exporter    *export.Exporter
	messages    notify.Catalog
	notifier    notify.Notifier
	emitter     export.ChangeEmitter
	logger      export.Logger
	queueLimit  int
	limit       int
	maxSeed     int
	now         func() time.Time
	idGenerator func() string
}

type session struct {
	id       string
	editor   *grid.Editor
	coord    *export.Coordinator
	queue    *notify.Queue
	notifier notify.Notifier

	mu        sync.Mutex
	artifacts []string
	lastSeen  time.Time
}

var _ Service = (*Manager)(nil)

// NewManager creates a Manager with the provided configuration.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		sessions:    make(map[string]*session),
		exporter:    cfg.Exporter,
		messages:    cfg.Messages,
		notifier:    cfg.Notifier,
		emitter:     cfg.Emitter,
		logger:      cfg.Logger,
		queueLimit:  cfg.QueueLimit,
		limit:       cfg.Limit,
		maxSeed:     cfg.MaxSeedCells,
		now:         cfg.Now,
		idGenerator: cfg.IDGenerator,
	}
	if m.messages == nil {
		m.messages = notify.DefaultCatalog()
	}
	if m.logger == nil {
		m.logger = export.NopLogger{}
	}
	if m.limit <= 0 {
		m.limit = DefaultLimit
	}
	if m.maxSeed <= 0 {
		m.maxSeed = DefaultMaxSeedCells
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.idGenerator == nil {
		m.idGenerator = uuid.NewString
	}
	return m
}

// Create opens a new session, optionally seeded with cells.
func (m *Manager) Create(ctx context.Context, input CreateInput) (View, error) {
	rows, cols := input.Rows, input.Cols
	if len(input.Cells) > 0 {
		rows = max(rows, len(input.Cells))
		for _, row := range input.Cells {
			cols = max(cols, len(row))
		}
	}
	if rows < 0 || cols < 0 {
		return View{}, export.AsGoError(export.NewError(export.KindValidation, "rows and cols must be positive", nil).WithCode("invalid_dimensions"))
	}
	if rows > m.maxSeed || cols > m.maxSeed || rows*cols > m.maxSeed {
		return View{}, export.AsGoError(export.NewError(export.KindValidation, fmt.Sprintf("table of %dx%d exceeds %d cells", rows, cols, m.maxSeed), nil).WithCode("invalid_dimensions"))
	}

	queue := notify.NewQueue(m.queueLimit)
	notifier := notify.Notifier(queue)
	if m.notifier != nil {
		notifier = notify.Multi{queue, m.notifier}
	}

	coord := export.NewCoordinator()
	coord.Emitter = m.emitter

	editor, err := grid.NewEditor(grid.Config{
		Rows:     rows,
		Cols:     cols,
		Title:    input.Title,
		Caption:  input.Caption,
		Notifier: notifier,
		Messages: m.messages,
		Handoff:  coord,
		Now:      m.now,
	})
	if err != nil {
		return View{}, export.AsGoError(err)
	}
	for r, row := range input.Cells {
		for c, text := range row {
			if err := editor.SetCell(ctx, r, c, text); err != nil {
				return View{}, export.AsGoError(err)
			}
		}
	}

	s := &session{
		id:       m.idGenerator(),
		editor:   editor,
		coord:    coord,
		queue:    queue,
		notifier: notifier,
		lastSeen: m.now(),
	}

	m.mu.Lock()
	if len(m.sessions) >= m.limit {
		m.mu.Unlock()
		return View{}, export.AsGoError(export.NewError(export.KindConflict, "too many open tables", nil).WithCode("session_limit"))
	}
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Debugf("session %s: created %dx%d", s.id, editor.State().Rows, editor.State().Cols)
	return m.view(s), nil
}

// State returns the session view and drains its notifications.
func (m *Manager) State(ctx context.Context, id string) (View, error) {
	_ = ctx
	s, err := m.get(id)
	if err != nil {
		return View{}, err
	}
	return m.view(s), nil
}

// Close removes the session and deletes its stored artifacts.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return notFound(id)
	}
	m.cleanup(ctx, s)
	return nil
}

// SetCell replaces one cell.
func (m *Manager) SetCell(ctx context.Context, id string, row, col int, text string) (View, error) {
	s, err := m.get(id)
	if err != nil {
		return View{}, err
	}
	if err := s.editor.SetCell(ctx, row, col, text); err != nil {
		return View{}, export.AsGoError(err)
	}
	return m.view(s), nil
}

// AddRow appends an empty row.
func (m *Manager) AddRow(ctx context.Context, id string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.AddRow(ctx) })
}

// RemoveRow drops the last row; with one row left it is a silent no-op.
func (m *Manager) RemoveRow(ctx context.Context, id string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.RemoveRow(ctx) })
}

// AddColumn appends an empty column.
func (m *Manager) AddColumn(ctx context.Context, id string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.AddColumn(ctx) })
}

// RemoveColumn drops the last column; with one column left it is a silent no-op.
func (m *Manager) RemoveColumn(ctx context.Context, id string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.RemoveColumn(ctx) })
}

// SetTitle replaces the title.
func (m *Manager) SetTitle(ctx context.Context, id, text string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.SetTitle(ctx, text) })
}

// SetCaption replaces the caption.
func (m *Manager) SetCaption(ctx context.Context, id, text string) (View, error) {
	return m.mutate(id, func(e *grid.Editor) { e.SetCaption(ctx, text) })
}

// RequestExport snapshots the grid into the preview.
func (m *Manager) RequestExport(ctx context.Context, id string) (View, error) {
	s, err := m.get(id)
	if err != nil {
		return View{}, err
	}
	if _, _, err := s.editor.RequestExport(ctx); err != nil {
		return View{}, export.AsGoError(err)
	}
	return m.view(s), nil
}

// Download exports the preview snapshot and returns the stored artifact.
// On failure the returned Download holds the drained notifications.
func (m *Manager) Download(ctx context.Context, id string) (Download, error) {
	s, err := m.get(id)
	if err != nil {
		return Download{}, err
	}

	result, err := s.coord.Export(ctx, export.RunnerFunc(func(ctx context.Context, snap export.Snapshot) (export.Result, error) {
		if m.exporter == nil {
			return export.Result{}, export.AsGoError(export.NewError(export.KindInternal, "exporter is not configured", nil))
		}
		exporter := *m.exporter
		exporter.Notifier = s.notifier
		exporter.Messages = m.messages
		return exporter.Export(ctx, snap)
	}))
	if err != nil {
		return Download{SessionID: s.id, Notifications: s.queue.Drain()}, err
	}

	s.mu.Lock()
	s.artifacts = append(s.artifacts, result.Artifact.Key)
	s.mu.Unlock()

	return Download{
		SessionID:     s.id,
		Result:        result,
		Key:           result.Artifact.Key,
		Filename:      result.Filename,
		Size:          result.Bytes,
		Notifications: s.queue.Drain(),
	}, nil
}

// Preview returns the current preview of the session.
func (m *Manager) Preview(ctx context.Context, id string) (export.Preview, error) {
	_ = ctx
	s, err := m.get(id)
	if err != nil {
		return export.NoPreview(), err
	}
	return s.coord.Current(), nil
}

// Artifact opens an artifact produced by the session.
func (m *Manager) Artifact(ctx context.Context, id, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}
	if !s.owns(key) {
		return nil, export.ArtifactMeta{}, export.AsGoError(export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), nil))
	}
	if m.exporter == nil || m.exporter.Store == nil {
		return nil, export.ArtifactMeta{}, export.AsGoError(export.NewError(export.KindInternal, "artifact store is not configured", nil))
	}
	rc, meta, err := m.exporter.Store.Open(ctx, key)
	if err != nil {
		return nil, export.ArtifactMeta{}, export.AsGoError(err)
	}
	return rc, meta, nil
}

// Expire closes sessions idle since before cutoff and returns their ids.
func (m *Manager) Expire(ctx context.Context, cutoff time.Time) []string {
	m.mu.Lock()
	var expired []*session
	for id, s := range m.sessions {
		if s.seen().Before(cutoff) && !s.coord.Busy() {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		m.cleanup(ctx, s)
		ids = append(ids, s.id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) mutate(id string, fn func(e *grid.Editor)) (View, error) {
	s, err := m.get(id)
	if err != nil {
		return View{}, err
	}
	fn(s.editor)
	return m.view(s), nil
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) view(s *session) View {
	s.mu.Lock()
	artifacts := append([]string{}, s.artifacts...)
	s.mu.Unlock()
	return View{
		ID:            s.id,
		Table:         s.editor.State(),
		Preview:       PreviewOf(s.coord.Current()),
		Exporting:     s.coord.Busy(),
		Artifacts:     artifacts,
		Notifications: s.queue.Drain(),
	}
}

func (m *Manager) cleanup(ctx context.Context, s *session) {
	s.mu.Lock()
	keys := s.artifacts
	s.artifacts = nil
	s.mu.Unlock()

	if m.exporter == nil || m.exporter.Store == nil {
		return
	}
	for _, key := range keys {
		if err := m.exporter.Store.Delete(ctx, key); err != nil {
			m.logger.Errorf("session %s: delete artifact %s: %v", s.id, key, err)
		}
	}
	m.logger.Debugf("session %s: closed", s.id)
}

func (s *session) owns(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.artifacts {
		if k == key {
			return true
		}
	}
	return false
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func notFound(id string) error {
	return export.AsGoError(export.NewError(export.KindNotFound, fmt.Sprintf("table %q not found", id), nil).WithCode("table_not_found"))
}
