package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

type EndpointState int

const (
	StateUnknown EndpointState = iota
	StateConnected
	StateDisconnected
)

func (s EndpointState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Selector tracks an ordered list of candidate readings endpoints and the
// one currently selected. Transitions are driven by probe results and by
// send failures reported through MarkFailure. The read loop and the spool
// flusher share one selector, so all state is mutex-guarded.
type Selector struct {
	log       *slog.Logger
	endpoints []string
	probe     func(ctx context.Context, endpoint string) error

	mu      sync.Mutex
	current int
	state   EndpointState
}

func NewSelector(log *slog.Logger, endpoints []string, probe func(ctx context.Context, endpoint string) error) *Selector {
	return &Selector{
		log:       log,
		endpoints: endpoints,
		probe:     probe,
		state:     StateUnknown,
	}
}

// Current returns the selected endpoint and the connection state.
func (s *Selector) Current() (string, EndpointState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.endpoints) == 0 {
		return "", StateDisconnected
	}
	return s.endpoints[s.current], s.state
}

// Select returns a reachable endpoint, probing candidates in order starting
// from the current selection when the state is not connected. Returns false
// when no candidate responds, leaving the selector disconnected.
func (s *Selector) Select(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.endpoints) == 0 {
		return "", false
	}

	if s.state == StateConnected {
		return s.endpoints[s.current], true
	}

	for i := range s.endpoints {
		idx := (s.current + i) % len(s.endpoints)
		endpoint := s.endpoints[idx]

		if err := s.probe(ctx, endpoint); err != nil {
			s.log.Warn("endpoint probe failed",
				slog.String("endpoint", endpoint),
				sl.Err(err),
			)
			continue
		}

		if idx != s.current || s.state != StateConnected {
			s.log.Info("endpoint selected",
				slog.String("endpoint", endpoint),
				slog.String("previous_state", s.state.String()),
			)
		}

		s.current = idx
		s.state = StateConnected
		return endpoint, true
	}

	s.state = StateDisconnected
	return "", false
}

// MarkFailure records a send failure against the selected endpoint; the
// next Select re-probes before handing out an endpoint.
func (s *Selector) MarkFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
}
