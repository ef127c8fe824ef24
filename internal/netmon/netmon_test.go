package netmon

import (
	"sync/atomic"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func TestStateOnline(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  bool
	}{
		{"disconnected", State{Connected: false}, false},
		{"connected unknown reachability", State{Connected: true}, true},
		{"connected reachable", State{Connected: true, Reachable: boolPtr(true)}, true},
		{"connected unreachable", State{Connected: true, Reachable: boolPtr(false)}, false},
		{"disconnected but marked reachable", State{Connected: false, Reachable: boolPtr(true)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.state.Online(); got != tc.want {
				t.Errorf("Online() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMonitorStartsOffline(t *testing.T) {
	m := New()
	if m.IsOnline() {
		t.Fatal("monitor online before any observation")
	}
}

func TestOnOnlineFiresOncePerEdge(t *testing.T) {
	m := New(WithSettleDelay(10 * time.Millisecond))

	var fires atomic.Int32
	m.OnOnline(func() { fires.Add(1) })

	m.SetState(State{Connected: true})
	// Re-asserting online is not an edge
	m.SetState(State{Connected: true, Reachable: boolPtr(true)})

	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}

	m.SetState(State{Connected: false})
	m.SetState(State{Connected: true})
	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != 2 {
		t.Fatalf("callback fired %d times after second edge, want 2", got)
	}
}

func TestOfflineBeforeSettleSuppressesCallback(t *testing.T) {
	m := New(WithSettleDelay(30 * time.Millisecond))

	var fires atomic.Int32
	m.OnOnline(func() { fires.Add(1) })

	m.SetState(State{Connected: true})
	m.SetState(State{Connected: false})

	time.Sleep(80 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Fatalf("callback fired %d times despite going offline before settle", got)
	}
}

func TestOnOnlineCancel(t *testing.T) {
	m := New(WithSettleDelay(10 * time.Millisecond))

	var fires atomic.Int32
	cancel := m.OnOnline(func() { fires.Add(1) })
	cancel()

	m.SetState(State{Connected: true})
	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Fatalf("cancelled callback fired %d times", got)
	}
}

func TestStartConsumesFeedSource(t *testing.T) {
	m := New(WithSettleDelay(time.Millisecond))
	src := NewFeedSource()
	m.Start(src)
	defer m.Stop()

	src.Push(State{Connected: true})

	deadline := time.After(time.Second)
	for !m.IsOnline() {
		select {
		case <-deadline:
			t.Fatal("monitor never observed the pushed state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	src.Push(State{Connected: true, Reachable: boolPtr(false)})
	deadline = time.After(time.Second)
	for m.IsOnline() {
		select {
		case <-deadline:
			t.Fatal("monitor never observed the unreachable state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
