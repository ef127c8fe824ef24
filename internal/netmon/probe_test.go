package netmon

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProbeReportsReachability(t *testing.T) {
	ok := NewProbeSource(func(ctx context.Context) error { return nil }, time.Minute)
	st := ok.Probe()
	if !st.Online() {
		t.Fatalf("succeeding probe read as offline: %+v", st)
	}

	down := NewProbeSource(func(ctx context.Context) error { return errors.New("unreachable") }, time.Minute)
	st = down.Probe()
	if st.Online() {
		t.Fatalf("failing probe read as online: %+v", st)
	}
	if st.Reachable == nil || *st.Reachable {
		t.Fatalf("reachability: got %v, want false", st.Reachable)
	}
}

func TestProbeEmitsEvent(t *testing.T) {
	p := NewProbeSource(func(ctx context.Context) error { return nil }, time.Minute)
	p.Probe()

	select {
	case st := <-p.Events():
		if !st.Online() {
			t.Fatalf("emitted state offline: %+v", st)
		}
	default:
		t.Fatal("no event emitted")
	}
}

func TestRunProbesImmediately(t *testing.T) {
	p := NewProbeSource(func(ctx context.Context) error { return nil }, time.Hour)
	go p.Run()
	defer p.Stop()

	select {
	case st := <-p.Events():
		if !st.Online() {
			t.Fatalf("initial probe offline: %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial probe before first tick")
	}
}
