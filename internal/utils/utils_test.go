package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/studio-insights/internal/logging"
)

func TestBackoffRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := NewBackoff(time.Millisecond, 3).Do(context.Background(), func(i int) error {
		calls++
		if i < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 calls, got %d calls, err %v", calls, err)
	}
}

func TestBackoffGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := NewBackoff(time.Millisecond, 2).Do(context.Background(), func(int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("expected 3 calls and boom, got %d, %v", calls, err)
	}
}

func TestBackoffPermanent(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	err := NewBackoff(time.Millisecond, 5).Do(context.Background(), func(int) error {
		calls++
		return Permanent(boom)
	})
	if err != boom || calls != 1 {
		t.Fatalf("expected single call returning the cause, got %d, %v", calls, err)
	}
}

func TestBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewBackoff(time.Hour, 3).Do(ctx, func(int) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRequestIDAndRoute(t *testing.T) {
	var seen, route string
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog)
	r.Get("/reports/{report}", func(w http.ResponseWriter, req *http.Request) {
		seen = logging.RequestIDFromContext(req.Context())
		w.WriteHeader(http.StatusTeapot)
		route = RoutePattern(req)
	})

	req := httptest.NewRequest(http.MethodGet, "/reports/funnel", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen != "abc" || rec.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("expected propagated id abc, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if route != "/reports/{report}" {
		t.Fatalf("expected route pattern, got %q", route)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/x", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}
