package store

import (
	"sync"
	"time"

	"github.com/AngelCh415/studio-insights/internal/models"
)

// Dataset names, shared with ingest and the readiness check.
const (
	Clients  = "clients"
	Leads    = "leads"
	Sessions = "sessions"
	Sales    = "sales"
)

// MemoryStore holds the latest snapshot of each dataset. A load replaces the
// whole snapshot; readers get copies and never see a partial load.
type MemoryStore struct {
	mu       sync.RWMutex
	clients  []models.Client
	leads    []models.Lead
	sessions []models.Session
	sales    []models.Sale
	loadedAt map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{loadedAt: make(map[string]time.Time)}
}

type keyed interface{ Key() string }

// dedupe keeps the first record of each non-empty key. Only datasets whose
// ids are row ids (leads, sessions, sales) go through it.
func dedupe[T keyed](in []T) (out []T, dropped int) {
	seen := make(map[string]struct{}, len(in))
	out = make([]T, 0, len(in))
	for _, r := range in {
		if k := r.Key(); k != "" {
			if _, ok := seen[k]; ok {
				dropped++
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, r)
	}
	return out, dropped
}

// ReplaceClients swaps in a new client snapshot. Client rows are kept as
// delivered: a member can appear on more than one row of the conversion
// sheet, so there is no de-duplication and the result is always 0.
func (s *MemoryStore) ReplaceClients(in []models.Client) int {
	out := make([]models.Client, len(in))
	copy(out, in)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = out
	s.loadedAt[Clients] = time.Now()
	return 0
}

func (s *MemoryStore) ReplaceLeads(in []models.Lead) int {
	out, dropped := dedupe(in)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = out
	s.loadedAt[Leads] = time.Now()
	return dropped
}

// ReplaceSessions also clamps negative attendance counts to zero.
func (s *MemoryStore) ReplaceSessions(in []models.Session) int {
	out, dropped := dedupe(in)
	for i := range out {
		out[i].Capacity = max0(out[i].Capacity)
		out[i].CheckedIn = max0(out[i].CheckedIn)
		out[i].Booked = max0(out[i].Booked)
		out[i].LateCancelled = max0(out[i].LateCancelled)
		out[i].EmptySessions = max0(out[i].EmptySessions)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = out
	s.loadedAt[Sessions] = time.Now()
	return dropped
}

func (s *MemoryStore) ReplaceSales(in []models.Sale) int {
	out, dropped := dedupe(in)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = out
	s.loadedAt[Sales] = time.Now()
	return dropped
}

func (s *MemoryStore) Clients() []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Client(nil), s.clients...)
}

func (s *MemoryStore) Leads() []models.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Lead(nil), s.leads...)
}

func (s *MemoryStore) Sessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Session(nil), s.sessions...)
}

func (s *MemoryStore) Sales() []models.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Sale(nil), s.sales...)
}

// LoadedAt reports when dataset was last replaced.
func (s *MemoryStore) LoadedAt(dataset string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.loadedAt[dataset]
	return t, ok
}

// Ready is true once every named dataset has been loaded at least once.
func (s *MemoryStore) Ready(datasets ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range datasets {
		if _, ok := s.loadedAt[d]; !ok {
			return false
		}
	}
	return true
}

// Counts returns the snapshot size of each dataset.
func (s *MemoryStore) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		Clients:  len(s.clients),
		Leads:    len(s.leads),
		Sessions: len(s.sessions),
		Sales:    len(s.sales),
	}
}

func max0(n models.Number) models.Number {
	if n < 0 {
		return 0
	}
	return n
}
