package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// stateResolver is the slice of IdentityService the manager needs.
type stateResolver interface {
	Resolve(ctx context.Context, sessionID string) (identity.State, error)
}

const resolveTimeout = 15 * time.Second

// Manager tracks the observable identity state per session and fans changes
// out to subscribers. Invalidation requests that arrive while a resolution is
// running collapse into a single trailing run, so a burst of auth events
// yields one consistent final state instead of a race of stale writes.
type Manager struct {
	resolver stateResolver
	logger   *slog.Logger

	mu       sync.Mutex
	watchers map[string]*sessionWatcher
}

// NewManager constructs a Manager around the given resolver.
func NewManager(resolver stateResolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		resolver: resolver,
		logger:   logger,
		watchers: make(map[string]*sessionWatcher),
	}
}

type sessionWatcher struct {
	mu        sync.Mutex
	state     identity.State
	subs      map[int]chan identity.State
	nextSubID int
	running   bool
	// pending is the single supersede slot: at most one follow-up run is
	// queued no matter how many invalidations arrive mid-flight.
	pending bool
}

// Subscribe registers a listener for state changes of the given session and
// returns the channel plus a cancel function. The channel has capacity one
// and always carries the latest state; intermediate states may be skipped.
// The current state is delivered immediately. Callers must invoke cancel.
func (m *Manager) Subscribe(sessionID string) (<-chan identity.State, func()) {
	w := m.watcher(sessionID, true)

	w.mu.Lock()
	id := w.nextSubID
	w.nextSubID++
	ch := make(chan identity.State, 1)
	w.subs[id] = ch
	ch <- w.state
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		delete(w.subs, id)
		empty := len(w.subs) == 0 && !w.running
		w.mu.Unlock()
		if empty {
			m.drop(sessionID, w)
		}
	}

	m.Invalidate(sessionID)
	return ch, cancel
}

// Current returns the last observed state for the session, or the anonymous
// state when the session is not being watched.
func (m *Manager) Current(sessionID string) identity.State {
	w := m.watcher(sessionID, false)
	if w == nil {
		return identity.AnonymousState()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Invalidate schedules a resolution for the session. If one is already in
// flight the request lands in the supersede slot and runs once the current
// flight finishes.
func (m *Manager) Invalidate(sessionID string) {
	w := m.watcher(sessionID, false)
	if w == nil {
		return
	}

	w.mu.Lock()
	if w.running {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.state = identity.State{Session: w.state.Session, Phase: identity.PhaseProfileResolving}
	w.mu.Unlock()

	go m.run(sessionID, w)
}

func (m *Manager) run(sessionID string, w *sessionWatcher) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		state, err := m.resolver.Resolve(ctx, sessionID)
		cancel()
		if err != nil {
			// Resolve fails closed; the anonymous state it returns is the
			// correct thing to publish.
			m.logger.Warn("session resolution failed",
				"session_id", sessionID, "err", err)
		}

		w.mu.Lock()
		w.state = state
		for _, ch := range w.subs {
			// Latest-wins delivery: replace any undrained value.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
		if w.pending {
			w.pending = false
			w.mu.Unlock()
			continue
		}
		w.running = false
		empty := len(w.subs) == 0
		w.mu.Unlock()

		if empty {
			m.drop(sessionID, w)
		}
		return
	}
}

func (m *Manager) watcher(sessionID string, create bool) *sessionWatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watchers[sessionID]
	if !ok && create {
		w = &sessionWatcher{
			state: identity.State{Phase: identity.PhaseInitializing},
			subs:  make(map[int]chan identity.State),
		}
		m.watchers[sessionID] = w
	}
	return w
}

func (m *Manager) drop(sessionID string, w *sessionWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.watchers[sessionID]; ok && current == w {
		w.mu.Lock()
		stale := len(w.subs) == 0 && !w.running
		w.mu.Unlock()
		if stale {
			delete(m.watchers, sessionID)
		}
	}
}
