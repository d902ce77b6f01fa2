package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/studio-insights/internal/export"
	"github.com/AngelCh415/studio-insights/internal/ingest"
	"github.com/AngelCh415/studio-insights/internal/logging"
	"github.com/AngelCh415/studio-insights/internal/reports"
	"github.com/AngelCh415/studio-insights/internal/store"
	"github.com/AngelCh415/studio-insights/internal/utils"
)

// Ingester refreshes datasets from their upstream sources.
type Ingester interface {
	Datasets() []string
	Run(ctx context.Context) ([]ingest.Report, error)
	Load(ctx context.Context, dataset string) (ingest.Report, error)
}

// Pusher sends a report snapshot to the export sink.
type Pusher interface {
	Push(ctx context.Context, res *reports.Result) (export.Receipt, error)
}

type Deps struct {
	Store   *store.MemoryStore
	Reports *reports.Service
	Ingest  Ingester
	Push    Pusher

	CORSOrigins         []string
	IngestRatePerMinute int
}

type router struct{ Deps }

func NewRouter(d Deps) http.Handler {
	rt := &router{Deps: d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.AccessLog)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", utils.RequestIDHeader},
		ExposedHeaders: []string{utils.RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", rt.ready)
	mux.Handle("/metrics", promhttp.Handler())

	rate := d.IngestRatePerMinute
	if rate <= 0 {
		rate = 6
	}
	mux.With(httprate.LimitByIP(rate, time.Minute)).Post("/ingest/run", rt.ingestRun)

	mux.Route("/reports", func(r chi.Router) {
		r.Get("/", rt.catalog)
		r.Get("/{report}", rt.report)
		r.Get("/{report}/{view}", rt.report)
		r.Get("/{report}/options/{field}", rt.options)
	})

	mux.Route("/export", func(r chi.Router) {
		r.Get("/{report}.xlsx", rt.xlsx)
		r.Get("/{report}/{view}.xlsx", rt.xlsx)
		r.Post("/{report}/push", rt.push)
		r.Post("/{report}/{view}/push", rt.push)
	})

	return mux
}

func (rt *router) ready(w http.ResponseWriter, r *http.Request) {
	counts := rt.Store.Counts()
	if !rt.Store.Ready(rt.Ingest.Datasets()...) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "records": counts})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true, "records": counts})
}

func (rt *router) ingestRun(w http.ResponseWriter, r *http.Request) {
	var (
		reps []ingest.Report
		err  error
	)
	if ds := r.URL.Query().Get("dataset"); ds != "" {
		var rep ingest.Report
		rep, err = rt.Ingest.Load(r.Context(), ds)
		reps = []ingest.Report{rep}
	} else {
		reps, err = rt.Ingest.Run(r.Context())
	}
	switch {
	case errors.Is(err, ingest.ErrNoSource):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		logging.Ctx(r.Context()).Warn().Err(err).Msg("ingest failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "datasets": reps})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"datasets": reps, "records": rt.Store.Counts()})
	}
}

func (rt *router) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports.Catalog(),
		"filters": reports.OptionFields(),
	})
}

func (rt *router) options(w http.ResponseWriter, r *http.Request) {
	vals, err := rt.Reports.Options(chi.URLParam(r, "report"), chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": chi.URLParam(r, "field"), "options": vals})
}

// build parses the query string and computes the report named by the route.
func (rt *router) build(r *http.Request) (*reports.Result, error) {
	q, err := reports.ParseQuery(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return rt.Reports.Build(chi.URLParam(r, "report"), chi.URLParam(r, "view"), q)
}

func (rt *router) report(w http.ResponseWriter, r *http.Request) {
	res, err := rt.build(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *router) xlsx(w http.ResponseWriter, r *http.Request) {
	res, err := rt.build(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	name := strings.ReplaceAll(res.Report+"-"+res.View, " ", "_") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteXLSX(res.Table, w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("report", res.Report).Msg("xlsx export failed")
	}
}

func (rt *router) push(w http.ResponseWriter, r *http.Request) {
	res, err := rt.build(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	rec, err := rt.Push.Push(r.Context(), res)
	switch {
	case errors.Is(err, export.ErrSinkNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusAccepted, rec)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, reports.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	_ = enc.Encode(v)
}
