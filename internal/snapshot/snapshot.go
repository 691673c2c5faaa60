package snapshot

import (
	"sync/atomic"
	"time"
)

// Cycle is the read-only summary of one completed scan cycle, served by the
// status endpoint.
type Cycle struct {
	Seq        uint64    `json:"seq"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Devices int `json:"devices"`
	Probed  int `json:"probed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Alerts  int `json:"alerts"`

	Online  int `json:"online"`
	Slow    int `json:"slow"`
	Offline int `json:"offline"`

	// Error is set when the cycle ended before probing, e.g. the registry
	// could not be read.
	Error string `json:"error,omitempty"`
}

// Store holds the latest published cycle.
type Store struct {
	current atomic.Pointer[Cycle]
}

func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot.
func (s *Store) Publish(c Cycle) {
	s.current.Store(&c)
}

// Get returns the latest snapshot. ok is false until the first cycle is
// published.
func (s *Store) Get() (c Cycle, ok bool) {
	if p := s.current.Load(); p != nil {
		return *p, true
	}
	return Cycle{}, false
}
