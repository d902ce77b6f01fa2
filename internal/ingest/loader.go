// Package ingest downloads the four studio datasets and swaps them into the
// in-memory store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/studio-insights/internal/config"
	"github.com/AngelCh415/studio-insights/internal/logging"
	"github.com/AngelCh415/studio-insights/internal/metrics"
	"github.com/AngelCh415/studio-insights/internal/models"
	"github.com/AngelCh415/studio-insights/internal/store"
	"github.com/AngelCh415/studio-insights/internal/utils"
)

// ErrNoSource is returned when a dataset has no configured URL.
var ErrNoSource = errors.New("ingest: no source configured")

// Report describes one dataset load.
type Report struct {
	Dataset    string `json:"dataset"`
	Records    int    `json:"records"`
	Dropped    int    `json:"duplicatesDropped"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

type Loader struct {
	c       HTTPClient
	st      *store.MemoryStore
	urls    map[string]string
	token   string
	backoff utils.Backoff
	mu      sync.Mutex // serialises runs
}

func NewLoader(c HTTPClient, st *store.MemoryStore, cfg config.SourcesConfig) *Loader {
	return &Loader{
		c:       c,
		st:      st,
		urls:    cfg.Datasets(),
		token:   cfg.Token,
		backoff: utils.NewBackoff(cfg.RetryBase, cfg.Retries),
	}
}

// Datasets lists the configured dataset names, sorted.
func (l *Loader) Datasets() []string {
	out := make([]string, 0, len(l.urls))
	for name := range l.urls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run loads every configured dataset concurrently. Each dataset is replaced
// independently; the returned error is the first failure.
func (l *Loader) Run(ctx context.Context) ([]Report, error) {
	names := l.Datasets()
	if len(names) == 0 {
		return nil, ErrNoSource
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	reports := make([]Report, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			rep, err := l.load(ctx, name)
			reports[i] = rep
			return err
		})
	}
	return reports, g.Wait()
}

// Load fetches a single dataset.
func (l *Loader) Load(ctx context.Context, dataset string) (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, dataset)
}

func (l *Loader) load(ctx context.Context, dataset string) (rep Report, err error) {
	rep.Dataset = dataset
	start := time.Now()
	defer func() {
		rep.DurationMS = time.Since(start).Milliseconds()
		if err != nil {
			rep.Error = err.Error()
		}
		metrics.RecordIngest(dataset, time.Since(start), rep.Records, err)
		level := zerolog.InfoLevel
		if err != nil {
			level = zerolog.WarnLevel
		}
		logging.Ctx(ctx).WithLevel(level).Err(err).
			Str("dataset", dataset).
			Int("records", rep.Records).
			Int("duplicates_dropped", rep.Dropped).
			Dur("elapsed", time.Since(start)).
			Msg("dataset load")
	}()

	url, ok := l.urls[dataset]
	if !ok {
		return rep, fmt.Errorf("%w: %s", ErrNoSource, dataset)
	}
	var body []byte
	err = l.backoff.Do(ctx, func(i int) error {
		if i > 0 {
			logging.Debug().Str("dataset", dataset).Int("attempt", i+1).Msg("retrying fetch")
		}
		var ferr error
		body, ferr = fetch(ctx, l.c, url, l.token)
		return ferr
	})
	if err != nil {
		return rep, fmt.Errorf("fetch %s: %w", dataset, err)
	}

	switch dataset {
	case store.Clients:
		rep.Records, rep.Dropped, err = replace(body, l.st.ReplaceClients)
	case store.Leads:
		rep.Records, rep.Dropped, err = replace(body, l.st.ReplaceLeads)
	case store.Sessions:
		rep.Records, rep.Dropped, err = replace(body, l.st.ReplaceSessions)
	case store.Sales:
		rep.Records, rep.Dropped, err = replace(body, l.st.ReplaceSales)
	default:
		err = fmt.Errorf("%w: %s", ErrNoSource, dataset)
	}
	if err != nil {
		return rep, fmt.Errorf("load %s: %w", dataset, err)
	}
	return rep, nil
}

type record interface {
	models.Client | models.Lead | models.Session | models.Sale
}

func replace[T record](body []byte, swap func([]T) int) (records, dropped int, err error) {
	recs, err := decodeRecords[T](body)
	if err != nil {
		return 0, 0, err
	}
	dropped = swap(recs)
	return len(recs) - dropped, dropped, nil
}
