// Package netmon observes platform connectivity transitions and exposes an
// online/offline signal plus edge-triggered reconnect notifications. It is a
// best-effort trigger, not a source of truth: callers still treat individual
// request failures as authoritative.
package netmon

import (
	"sync"
	"time"
)

// State is one connectivity observation. Reachable is tri-state: a link can
// be up without the internet being reachable, and some platforms cannot tell.
type State struct {
	Connected bool
	Reachable *bool // nil = unknown
}

// Online reports whether the state counts as online: connected and not
// known-unreachable.
func (s State) Online() bool {
	return s.Connected && (s.Reachable == nil || *s.Reachable)
}

// Source emits connectivity-change events from the platform.
type Source interface {
	Events() <-chan State
}

// FeedSource is a Source fed manually; it doubles as the test double and as
// the bridge for platforms that deliver connectivity callbacks.
type FeedSource struct {
	ch chan State
}

// NewFeedSource creates a FeedSource.
func NewFeedSource() *FeedSource {
	return &FeedSource{ch: make(chan State, 8)}
}

// Events implements Source.
func (f *FeedSource) Events() <-chan State { return f.ch }

// Push delivers a connectivity observation.
func (f *FeedSource) Push(st State) { f.ch <- st }

// defaultSettleDelay gives a fresh connection a moment to stabilize before
// reconnect callbacks fire.
const defaultSettleDelay = time.Second

// Monitor tracks the current network state and fires callbacks exactly once
// per offline-to-online edge.
type Monitor struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func()
	nextSub int
	settle  time.Duration
	done    chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSettleDelay overrides the reconnect settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Monitor) { m.settle = d }
}

// New creates a Monitor. The initial state is offline until the first
// observation arrives.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		subs:   make(map[int]func()),
		settle: defaultSettleDelay,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start consumes events from the source until Stop is called.
func (m *Monitor) Start(src Source) {
	go func() {
		for {
			select {
			case st, ok := <-src.Events():
				if !ok {
					return
				}
				m.SetState(st)
			case <-m.done:
				return
			}
		}
	}()
}

// Stop ends event consumption.
func (m *Monitor) Stop() {
	close(m.done)
}

// IsOnline returns the current online signal.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Online()
}

// SetState records a connectivity observation and fires reconnect callbacks
// on an offline-to-online edge, after the settle delay.
func (m *Monitor) SetState(st State) {
	m.mu.Lock()
	wasOnline := m.state.Online()
	m.state = st
	nowOnline := st.Online()
	m.mu.Unlock()

	if !wasOnline && nowOnline {
		time.AfterFunc(m.settle, m.fireOnline)
	}
}

// fireOnline runs reconnect callbacks if the monitor is still online after
// the settle delay.
func (m *Monitor) fireOnline() {
	m.mu.Lock()
	if !m.state.Online() {
		m.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnOnline registers fn to run once per offline-to-online transition.
// Returns a cancel func.
func (m *Monitor) OnOnline(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}
