package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AngelCh415/studio-insights/internal/logging"
)

// Scheduler reruns the loader on a cron schedule. Standard five-field
// expressions and descriptors such as "@every 30m" are accepted. A run that is
// still going when the next tick fires makes that tick a no-op.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	l       *Loader
	timeout time.Duration
}

func NewScheduler(l *Loader, spec string, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		l:       l,
		timeout: timeout,
	}
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("failed to add refresh schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Info().Time("next", s.Next()).Msg("refresh scheduler started")
}

// Stop halts the schedule and returns a context done once a running load ends.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next is the next planned run, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.l.Run(ctx); err != nil {
		logging.Warn().Err(err).Msg("scheduled refresh incomplete")
	}
}
