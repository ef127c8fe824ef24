package netmon

import (
	"context"
	"time"
)

// defaultProbeInterval is how often a ProbeSource re-checks reachability.
const defaultProbeInterval = 15 * time.Second

// ProbeSource derives connectivity by polling a reachability probe, for
// platforms with no native connectivity callbacks. The probe result maps
// to Reachable; Connected is assumed true since a failed probe already
// reads as offline.
type ProbeSource struct {
	probe    func(ctx context.Context) error
	interval time.Duration
	ch       chan State
	done     chan struct{}
}

// NewProbeSource creates a ProbeSource around probe. Interval <= 0 uses the
// default.
func NewProbeSource(probe func(ctx context.Context) error, interval time.Duration) *ProbeSource {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &ProbeSource{
		probe:    probe,
		interval: interval,
		ch:       make(chan State, 8),
		done:     make(chan struct{}),
	}
}

// Events implements Source.
func (p *ProbeSource) Events() <-chan State { return p.ch }

// Run probes immediately and then on every interval tick until Stop is
// called. Call it in a goroutine.
func (p *ProbeSource) Run() {
	p.emit()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.emit()
		case <-p.done:
			return
		}
	}
}

// Stop ends probing.
func (p *ProbeSource) Stop() { close(p.done) }

// Probe runs one reachability check synchronously and returns the state it
// emitted. Used by one-shot commands that cannot wait for a tick.
func (p *ProbeSource) Probe() State {
	return p.emit()
}

func (p *ProbeSource) emit() State {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reachable := p.probe(ctx) == nil
	st := State{Connected: true, Reachable: &reachable}
	select {
	case p.ch <- st:
	default:
		// Slow consumer; the next tick carries fresher truth anyway
	}
	return st
}
