package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AngelCh415/studio-insights/internal/config"
	"github.com/AngelCh415/studio-insights/internal/models"
	"github.com/AngelCh415/studio-insights/internal/store"
)

const leadsJSON = `[
  {"id":"L1","source":"Instagram","stage":"Trial Completed","ltv":"1,200","visits":3,"createdAt":"2024-03-02"},
  {"id":"L2","source":"Walk-in","stage":"New","ltv":null,"createdAt":"2024-03-05"},
  {"id":"L1","source":"dup","stage":"New"}
]`

const sessionsSheet = `{"values":[
  ["Session ID","Trainer","Cleaned Class","Date","Capacity","Checked In","Late Cancelled"],
  ["S1","Ana","Barre 57","2024-01-04",20,"15",-2],
  ["","","","","","",""],
  ["S2","Ben","PowerCycle","2024-01-05","10","0"]
]}`

func TestDecodeRecordsArray(t *testing.T) {
	leads, err := decodeRecords[models.Lead]([]byte(leadsJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 3 || leads[0].LTV != 1200 || leads[0].Visits != 3 || leads[1].LTV != 0 {
		t.Fatalf("unexpected leads %+v", leads)
	}
}

func TestDecodeRecordsSheet(t *testing.T) {
	sessions, err := decodeRecords[models.Session]([]byte(sessionsSheet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected blank row skipped, got %d sessions", len(sessions))
	}
	s := sessions[0]
	if s.SessionID != "S1" || s.CleanedClass != "Barre 57" || s.Capacity != 20 || s.CheckedIn != 15 || s.LateCancelled != -2 {
		t.Fatalf("unexpected session %+v", s)
	}
	if sessions[1].LateCancelled != 0 {
		t.Fatalf("expected missing trailing cell to be zero, got %v", sessions[1].LateCancelled)
	}
}

func TestDecodeRecordsDataEnvelope(t *testing.T) {
	sales, err := decodeRecords[models.Sale]([]byte(`{"data":[{"saleItemId":"X","discountAmount":"12.5"}]}`))
	if err != nil || len(sales) != 1 || sales[0].DiscountAmount != 12.5 {
		t.Fatalf("unexpected result %+v, %v", sales, err)
	}
}

func TestDecodeRecordsRejects(t *testing.T) {
	for _, body := range []string{"", "42", `{"other":1}`} {
		if _, err := decodeRecords[models.Sale]([]byte(body)); !errors.Is(err, errPayload) {
			t.Fatalf("body %q: expected errPayload, got %v", body, err)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	if got := normalizeHeader("Sale Item ID"); got != "saleitemid" {
		t.Fatalf("expected saleitemid, got %q", got)
	}
	if got := normalizeHeader("Discount %"); got != "discount" {
		t.Fatalf("expected discount, got %q", got)
	}
}

func newLoader(t *testing.T, st *store.MemoryStore, urls map[string]string) *Loader {
	t.Helper()
	cfg := config.SourcesConfig{
		Token:     "secret",
		Retries:   2,
		RetryBase: time.Millisecond,
	}
	cfg.ClientsURL = urls[store.Clients]
	cfg.LeadsURL = urls[store.Leads]
	cfg.SessionsURL = urls[store.Sessions]
	cfg.SalesURL = urls[store.Sales]
	return NewLoader(NewHTTPClient(time.Second), st, cfg)
}

func TestRunLoadsDatasets(t *testing.T) {
	var leadCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/leads":
			if leadCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(leadsJSON))
		case "/sessions":
			_, _ = w.Write([]byte(sessionsSheet))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	l := newLoader(t, st, map[string]string{
		store.Leads:    srv.URL + "/leads",
		store.Sessions: srv.URL + "/sessions",
	})
	reports, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 || reports[0].Dataset != store.Leads || reports[1].Dataset != store.Sessions {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if reports[0].Records != 2 || reports[0].Dropped != 1 {
		t.Fatalf("expected 2 leads with 1 duplicate dropped, got %+v", reports[0])
	}
	if leadCalls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", leadCalls.Load())
	}
	if len(st.Leads()) != 2 || len(st.Sessions()) != 2 {
		t.Fatalf("store not populated: %v", st.Counts())
	}
	if st.Sessions()[0].LateCancelled != 0 {
		t.Fatalf("expected negative count clamped, got %v", st.Sessions()[0].LateCancelled)
	}
}

func TestLoadClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	l := newLoader(t, store.NewMemoryStore(), map[string]string{store.Sales: srv.URL})
	rep, err := l.Load(context.Background(), store.Sales)
	if err == nil || rep.Error == "" {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestNoSource(t *testing.T) {
	l := newLoader(t, store.NewMemoryStore(), nil)
	if _, err := l.Run(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if _, err := l.Load(context.Background(), store.Clients); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	l := newLoader(t, store.NewMemoryStore(), nil)
	if _, err := NewScheduler(l, "every tuesday", time.Minute); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSchedulerRunsLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(leadsJSON))
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	s, err := NewScheduler(newLoader(t, st, map[string]string{store.Leads: srv.URL}), "@every 1h", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Next().IsZero() {
		t.Fatal("expected no planned run before Start")
	}
	s.Start()
	defer s.Stop()
	if s.Next().IsZero() {
		t.Fatal("expected a planned run after Start")
	}

	s.run()
	if len(st.Leads()) != 2 {
		t.Fatalf("expected leads loaded by the job, got %d", len(st.Leads()))
	}
}
