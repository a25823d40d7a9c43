package editorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	errorslib "github.com/goliatone/go-errors"

	"github.com/goliatone/go-gridexport/export"
	"github.com/goliatone/go-gridexport/session"
)

type stubRequest struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (s stubRequest) Context() context.Context { return context.Background() }
func (s stubRequest) Method() string           { return s.method }
func (s stubRequest) Path() string             { return s.path }
func (s stubRequest) Query(string) string      { return "" }
func (s stubRequest) Header(name string) string {
	return s.headers[name]
}
func (s stubRequest) Body() io.ReadCloser {
	return io.NopCloser(strings.NewReader(s.body))
}

type stubResponse struct {
	status  int
	headers http.Header
	body    bytes.Buffer
}

func newStubResponse() *stubResponse {
	return &stubResponse{headers: http.Header{}}
}

func (r *stubResponse) SetHeader(name, value string) { r.headers.Set(name, value) }
func (r *stubResponse) DelHeader(name string)        { r.headers.Del(name) }
func (r *stubResponse) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}
func (r *stubResponse) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(data)
}
func (r *stubResponse) WriteJSON(status int, payload any) error {
	r.headers.Set("Content-Type", "application/json")
	r.WriteHeader(status)
	return json.NewEncoder(&r.body).Encode(payload)
}
func (r *stubResponse) Writer() (io.Writer, bool) { return nil, false }

type stubHTML struct{}

func (stubHTML) RenderSnapshot(ctx context.Context, snap export.Snapshot, w io.Writer) (int64, error) {
	_ = ctx
	n, err := io.WriteString(w, "<div id=\"capture\">"+snap.Title()+"</div>")
	return int64(n), err
}

func newTestController(t *testing.T) (*Controller, *session.Manager) {
	t.Helper()
	manager := session.NewManager(session.Config{})
	return NewController(Config{
		Service:          manager,
		HTML:             stubHTML{},
		IdempotencyStore: NewMemoryIdempotencyStore(),
	}), manager
}

func serve(c *Controller, method, path, body string) *stubResponse {
	res := newStubResponse()
	c.Serve(stubRequest{method: method, path: path, body: body}, res)
	return res
}

func decodeView(t *testing.T, res *stubResponse) session.View {
	t.Helper()
	var view session.View
	if err := json.Unmarshal(res.body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v (%s)", err, res.body.String())
	}
	return view
}

func TestControllerCreateAndEdit(t *testing.T) {
	c, _ := newTestController(t)

	res := serve(c, http.MethodPost, "/tables", "")
	if res.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.status, res.body.String())
	}
	view := decodeView(t, res)
	if res.headers.Get("Location") != "/tables/"+view.ID {
		t.Fatalf("unexpected location %q", res.headers.Get("Location"))
	}

	res = serve(c, http.MethodPut, "/tables/"+view.ID+"/cells/0/1", `{"text":"Valor"}`)
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.status, res.body.String())
	}
	if got := decodeView(t, res).Table.Cells[0][1]; got != "Valor" {
		t.Fatalf("expected cell set, got %q", got)
	}

	res = serve(c, http.MethodPost, "/tables/"+view.ID+"/rows", "")
	view = decodeView(t, res)
	if view.Table.Rows != 4 || len(view.Notifications) != 1 {
		t.Fatalf("expected 4 rows and one notification, got %d / %d", view.Table.Rows, len(view.Notifications))
	}
	if view.Notifications[0].Title != "Linha adicionada" {
		t.Fatalf("unexpected notification %+v", view.Notifications[0])
	}

	res = serve(c, http.MethodPut, "/tables/"+view.ID+"/title", `{"text":"Tabela  2"}`)
	if got := decodeView(t, res).Table.Title; got != "Tabela  2" {
		t.Fatalf("expected verbatim title, got %q", got)
	}
}

func TestControllerErrors(t *testing.T) {
	c, _ := newTestController(t)
	view := decodeView(t, serve(c, http.MethodPost, "/tables", `{"rows":1,"cols":1}`))

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown table", http.MethodGet, "/tables/missing", "", http.StatusNotFound, "table_not_found"},
		{"cell out of range", http.MethodPut, "/tables/" + view.ID + "/cells/5/0", `{"text":"x"}`, http.StatusBadRequest, "cell_out_of_range"},
		{"bad cell index", http.MethodPut, "/tables/" + view.ID + "/cells/a/0", `{"text":"x"}`, http.StatusBadRequest, "cell_out_of_range"},
		{"missing text", http.MethodPut, "/tables/" + view.ID + "/title", `{}`, http.StatusBadRequest, "text_required"},
		{"unknown field", http.MethodPut, "/tables/" + view.ID + "/caption", `{"txt":"x"}`, http.StatusBadRequest, "validation"},
		{"download without preview", http.MethodGet, "/tables/" + view.ID + "/download", "", http.StatusBadRequest, "no_preview"},
		{"preview without request", http.MethodGet, "/tables/" + view.ID + "/preview", "", http.StatusNotFound, "no_preview"},
		{"oversized seed", http.MethodPost, "/tables", `{"rows":1000000,"cols":1000000}`, http.StatusBadRequest, "invalid_dimensions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := serve(c, tc.method, tc.path, tc.body)
			if res.status != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, res.status, res.body.String())
			}
			var payload ErrorResponse
			if err := json.Unmarshal(res.body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, payload.Error.Code)
			}
		})
	}
}

func TestControllerBodyLimit(t *testing.T) {
	manager := session.NewManager(session.Config{})
	c := NewController(Config{Service: manager, HTML: stubHTML{}, MaxBodyBytes: 32})

	res := serve(c, http.MethodPost, "/tables", `{"cells":[["`+strings.Repeat("x", 64)+`"]]}`)
	if res.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.status, res.body.String())
	}
	var payload ErrorResponse
	if err := json.Unmarshal(res.body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != "payload_too_large" {
		t.Fatalf("expected payload_too_large, got %q", payload.Error.Code)
	}
	if manager.Len() != 0 {
		t.Fatalf("expected no table created, got %d", manager.Len())
	}

	view := decodeView(t, serve(c, http.MethodPost, "/tables", `{"rows":2,"cols":2}`))
	if res := serve(c, http.MethodPut, "/tables/"+view.ID+"/title", `{"text":"Tabela 9"}`); res.status != http.StatusOK {
		t.Fatalf("expected body under limit accepted, got %d", res.status)
	}
	if res := serve(c, http.MethodPut, "/tables/"+view.ID+"/title", `{"text":"`+strings.Repeat("y", 40)+`"}`); res.status != http.StatusBadRequest {
		t.Fatalf("expected oversized text rejected, got %d", res.status)
	}
}

func TestControllerFailedDownloadReportsNotifications(t *testing.T) {
	failing := export.RasterizerFunc(func(context.Context, export.Layout, export.CaptureOptions) (export.Image, error) {
		return export.Image{}, io.ErrUnexpectedEOF
	})
	exporter := export.NewExporter(failing, nil, export.NewMemoryStore())
	manager := session.NewManager(session.Config{Exporter: exporter})
	c := NewController(Config{Service: manager, HTML: stubHTML{}})

	view := decodeView(t, serve(c, http.MethodPost, "/tables", ""))
	serve(c, http.MethodPost, "/tables/"+view.ID+"/export", "")

	res := serve(c, http.MethodGet, "/tables/"+view.ID+"/download", "")
	if res.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", res.status, res.body.String())
	}
	if got := res.headers.Get("X-Notification-Keys"); got != "export_started,export_failed" {
		t.Fatalf("unexpected notification keys %q", got)
	}
	var payload ErrorResponse
	if err := json.Unmarshal(res.body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(payload.Notifications) != 2 || payload.Notifications[1].Title != "Erro ao gerar PDF" {
		t.Fatalf("expected failure notification in body, got %+v", payload.Notifications)
	}

	if state := decodeView(t, serve(c, http.MethodGet, "/tables/"+view.ID, "")); len(state.Notifications) != 0 {
		t.Fatalf("expected notifications already delivered, got %+v", state.Notifications)
	}
}

func TestControllerRouting(t *testing.T) {
	c, _ := newTestController(t)
	if res := serve(c, http.MethodGet, "/other", ""); res.status != http.StatusNotFound {
		t.Fatalf("expected 404 outside base path, got %d", res.status)
	}
	if res := serve(c, http.MethodGet, "/tables", ""); res.status != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET collection, got %d", res.status)
	}
	res := serve(c, http.MethodPatch, "/tables/x/rows", "")
	if res.status != http.StatusMethodNotAllowed || res.headers.Get("Allow") != "POST,DELETE" {
		t.Fatalf("expected 405 with allow header, got %d %q", res.status, res.headers.Get("Allow"))
	}
	if res := serve(c, http.MethodGet, "/tables/x/unknown", ""); res.status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", res.status)
	}
}

func TestControllerPreviewAndForm(t *testing.T) {
	c, _ := newTestController(t)
	view := decodeView(t, serve(c, http.MethodPost, "/tables", ""))

	res := serve(c, http.MethodPost, "/tables/"+view.ID+"/export", "")
	if !decodeView(t, res).Preview.Visible {
		t.Fatalf("expected visible preview after export request")
	}

	res = serve(c, http.MethodGet, "/tables/"+view.ID+"/preview", "")
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	if !strings.Contains(res.body.String(), "Tabela 1") {
		t.Fatalf("expected rendered title, got %q", res.body.String())
	}
	if res.headers.Get("Content-Type") != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", res.headers.Get("Content-Type"))
	}

	res = serve(c, http.MethodGet, "/tables/"+view.ID+"/form", "")
	var form FormResponse
	if err := json.Unmarshal(res.body.Bytes(), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if !form.Form.Visible || form.Form.Download.Disabled {
		t.Fatalf("expected download enabled once preview is visible")
	}
	if form.Form.Grid.Cells[0][0].Action != "/tables/"+view.ID+"/cells/0/0" {
		t.Fatalf("unexpected cell action %q", form.Form.Grid.Cells[0][0].Action)
	}
}

func TestControllerIdempotentCreate(t *testing.T) {
	c, manager := newTestController(t)
	headers := map[string]string{"Idempotency-Key": "abc"}

	first := newStubResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: "/tables", body: `{"rows":2}`, headers: headers}, first)
	second := newStubResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: "/tables", body: `{"rows":2}`, headers: headers}, second)

	if first.status != http.StatusCreated || second.status != http.StatusOK {
		t.Fatalf("unexpected statuses %d / %d", first.status, second.status)
	}
	if decodeView(t, first).ID != decodeView(t, second).ID {
		t.Fatalf("expected same session for repeated key")
	}

	third := newStubResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: "/tables", body: `{"rows":3}`, headers: headers}, third)
	if third.status != http.StatusCreated {
		t.Fatalf("expected new session for different payload, got %d", third.status)
	}
	if manager.Len() != 2 {
		t.Fatalf("expected two sessions, got %d", manager.Len())
	}
}

func TestMemoryIdempotencyStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryIdempotencyStore()
	store.clock = func() time.Time { return now }
	if err := store.Set(context.Background(), "k", "s-1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if id, ok, _ := store.Get(context.Background(), "k"); !ok || id != "s-1" {
		t.Fatalf("expected hit, got %q %v", id, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected expiry")
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{export.NewError(export.KindValidation, "bad", nil), http.StatusBadRequest},
		{export.NewError(export.KindNotFound, "missing", nil), http.StatusNotFound},
		{export.NewError(export.KindConflict, "busy", nil).WithCode("export_in_progress"), http.StatusConflict},
		{export.NewError(export.KindNotImpl, "nope", nil), http.StatusNotImplemented},
		{export.NewError(export.KindTimeout, "slow", nil), http.StatusRequestTimeout},
		{export.NewError(export.KindCanceled, "stop", nil), http.StatusConflict},
		{errorslib.New("bad input", errorslib.CategoryBadInput), http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(export.AsGoError(tc.err)); got != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, got)
		}
	}
}
