package httpx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/studio-insights/internal/export"
	"github.com/AngelCh415/studio-insights/internal/ingest"
	"github.com/AngelCh415/studio-insights/internal/models"
	"github.com/AngelCh415/studio-insights/internal/reports"
	"github.com/AngelCh415/studio-insights/internal/store"
)

type fakeIngest struct {
	st  *store.MemoryStore
	err error
}

func (f *fakeIngest) Datasets() []string { return []string{store.Sessions} }

func (f *fakeIngest) Run(ctx context.Context) ([]ingest.Report, error) {
	if f.err != nil {
		return []ingest.Report{{Dataset: store.Sessions, Error: f.err.Error()}}, f.err
	}
	f.st.ReplaceSessions(sessions())
	return []ingest.Report{{Dataset: store.Sessions, Records: 3}}, nil
}

func (f *fakeIngest) Load(ctx context.Context, dataset string) (ingest.Report, error) {
	if dataset != store.Sessions {
		return ingest.Report{Dataset: dataset}, ingest.ErrNoSource
	}
	reps, err := f.Run(ctx)
	return reps[0], err
}

type fakePush struct{ calls int }

func (f *fakePush) Push(ctx context.Context, res *reports.Result) (export.Receipt, error) {
	f.calls++
	return export.Receipt{ID: "d-1", Report: res.Report, View: res.View}, nil
}

func sessions() []models.Session {
	return []models.Session{
		{SessionID: "1", Trainer: "Asha", CleanedClass: "PowerCycle 45", Time: "07:00", Date: "2024-01-01", Capacity: 20, CheckedIn: 18},
		{SessionID: "2", Trainer: "Asha", CleanedClass: "PowerCycle 45", Time: "07:00", Date: "2024-01-08", Capacity: 20, CheckedIn: 16},
		{SessionID: "3", Trainer: "Ravi", CleanedClass: "Barre 57", Time: "18:00", Date: "2024-01-02", Capacity: 20, CheckedIn: 4},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *store.MemoryStore, *fakeIngest, *fakePush) {
	t.Helper()
	st := store.NewMemoryStore()
	ing := &fakeIngest{st: st}
	push := &fakePush{}
	h := NewRouter(Deps{
		Store:               st,
		Reports:             reports.NewService(st, 2024),
		Ingest:              ing,
		Push:                push,
		CORSOrigins:         []string{"*"},
		IngestRatePerMinute: 100,
	})
	return h, st, ing, push
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	if rec := do(h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ingest, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/ingest/run"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from ingest, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after ingest, got %d", rec.Code)
	}
}

func TestIngestErrors(t *testing.T) {
	h, _, ing, _ := newTestRouter(t)
	if rec := do(h, http.MethodPost, "/ingest/run?dataset=sales"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unconfigured dataset, got %d", rec.Code)
	}
	ing.err = context.DeadlineExceeded
	if rec := do(h, http.MethodPost, "/ingest/run"); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	do(h, http.MethodPost, "/ingest/run")

	rec := do(h, http.MethodGet, "/reports/classes/trainers?metric=totalCheckedIn&direction=top")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Report string `json:"report"`
		View   string `json:"view"`
		Meta   struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Report != "classes" || body.View != "trainers" || body.Meta.Total != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestReportErrors(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	if rec := do(h, http.MethodGet, "/reports/classes/trainers?direction=sideways"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/reports/payroll"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/reports/classes/nope")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected JSON 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCatalogAndOptions(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	do(h, http.MethodPost, "/ingest/run")

	rec := do(h, http.MethodGet, "/reports/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"conversion"`) {
		t.Fatalf("unexpected catalog %d %s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodGet, "/reports/classes/options/trainer")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Ravi"`) {
		t.Fatalf("unexpected options %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportEndpoints(t *testing.T) {
	h, _, _, push := newTestRouter(t)
	do(h, http.MethodPost, "/ingest/run")

	rec := do(h, http.MethodGet, "/export/classes/trainers.xlsx")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != export.ContentTypeXLSX {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if f.SheetCount != 1 {
		t.Fatalf("expected one sheet, got %d", f.SheetCount)
	}

	if rec := do(h, http.MethodGet, "/export/formats.xlsx"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for default view, got %d", rec.Code)
	}

	rec = do(h, http.MethodPost, "/export/classes/trainers/push")
	if rec.Code != http.StatusAccepted || push.calls != 1 {
		t.Fatalf("expected 202 and one push, got %d / %d", rec.Code, push.calls)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	do(h, http.MethodGet, "/healthz")
	rec := do(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "studio_api_requests_total") {
		t.Fatalf("expected api metrics, got %d", rec.Code)
	}
}
