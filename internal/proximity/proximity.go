// Package proximity matches the device position against geotagged records
// in the cache and offers navigation to nearby work sites. Matching runs on
// cached data only, so it works offline.
package proximity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/erebuskaimoros/Landlord-sub000/internal/models"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// ErrPermissionDenied is returned by a LocationProvider when the user has
// refused location access. The matcher latches it and never re-prompts.
var ErrPermissionDenied = errors.New("location permission denied")

const (
	// earthRadiusMeters is the mean Earth radius.
	earthRadiusMeters = 6371000

	// DefaultRadiusMeters is how close a geotagged record must be to count
	// as "here".
	DefaultRadiusMeters = 75

	// DefaultAccuracyMeters rejects position fixes too coarse to trust.
	DefaultAccuracyMeters = 100

	// DefaultCooldown suppresses repeat prompts while the device lingers.
	DefaultCooldown = 30 * time.Second
)

// Haversine returns the great-circle distance in meters between two
// coordinates given in decimal degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// LocationProvider supplies the current device position. Implementations
// may block while acquiring a fix.
type LocationProvider interface {
	Current(ctx context.Context) (*models.Position, error)
}

// Navigator takes the user to a matched record.
type Navigator interface {
	Navigate(match models.ProximityMatch) error
}

// Config tunes the matcher. Zero values fall back to the defaults.
type Config struct {
	RadiusMeters   float64
	AccuracyMeters float64
	Cooldown       time.Duration
}

func (c Config) withDefaults() Config {
	if c.RadiusMeters <= 0 {
		c.RadiusMeters = DefaultRadiusMeters
	}
	if c.AccuracyMeters <= 0 {
		c.AccuracyMeters = DefaultAccuracyMeters
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// Action says what a check decided.
type Action int

const (
	// ActionNone: no usable fix, no match, cooldown, or dismissed.
	ActionNone Action = iota
	// ActionNavigated: exactly one match, navigation was invoked.
	ActionNavigated
	// ActionChoose: several matches, caller must let the user pick.
	ActionChoose
)

// Outcome is the result of one proximity check.
type Outcome struct {
	Action  Action
	Matches []models.ProximityMatch
}

// Matcher evaluates position fixes against geotagged cache records.
// Checks are serialized; dismissals last for the Matcher's lifetime.
type Matcher struct {
	store     *store.Store
	provider  LocationProvider
	navigator Navigator
	cfg       Config
	orgID     string
	now       func() time.Time

	mu         sync.Mutex
	lastCheck  time.Time
	dismissed  map[string]bool
	sessionOff bool   // user dismissed proximity prompts for this session
	viewing    string // record id currently open, suppresses its own match
	permDenied bool
}

// New creates a Matcher over the given cache store.
func New(st *store.Store, provider LocationProvider, nav Navigator, orgID string, cfg Config) *Matcher {
	return &Matcher{
		store:     st,
		provider:  provider,
		navigator: nav,
		cfg:       cfg.withDefaults(),
		orgID:     orgID,
		now:       time.Now,
		dismissed: make(map[string]bool),
	}
}

// Dismiss suppresses future matches for a record until the Matcher is
// discarded.
func (m *Matcher) Dismiss(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed[recordID] = true
}

// DismissSession turns off automatic proximity checks for the rest of this
// Matcher's lifetime. A manual CheckNow still runs; only the automatic
// trigger path stays quiet.
func (m *Matcher) DismissSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionOff = true
}

// SetViewing marks the record the user is already looking at. Its match is
// suppressed so a check never offers to navigate to the current screen.
// Pass "" when the user leaves the record.
func (m *Matcher) SetViewing(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewing = recordID
}

// Check acquires a position fix and evaluates it, honoring the cooldown.
// It returns ActionNone without acquiring a fix when the last check was
// too recent.
func (m *Matcher) Check(ctx context.Context, schemas ...*store.Schema) (*Outcome, error) {
	m.mu.Lock()
	if m.permDenied || m.sessionOff {
		m.mu.Unlock()
		return &Outcome{Action: ActionNone}, nil
	}
	if since := m.now().Sub(m.lastCheck); !m.lastCheck.IsZero() && since < m.cfg.Cooldown {
		m.mu.Unlock()
		return &Outcome{Action: ActionNone}, nil
	}
	m.lastCheck = m.now()
	m.mu.Unlock()

	return m.CheckNow(ctx, schemas...)
}

// CheckNow evaluates immediately, bypassing the cooldown. It also resets
// the cooldown window, so a manual check pushes the next automatic one out.
// A fix coarser than the accuracy gate is discarded without matching.
func (m *Matcher) CheckNow(ctx context.Context, schemas ...*store.Schema) (*Outcome, error) {
	m.mu.Lock()
	m.lastCheck = m.now()
	m.mu.Unlock()

	pos, err := m.provider.Current(ctx)
	if errors.Is(err, ErrPermissionDenied) {
		// Latched: asking again would nag the user every cooldown
		m.mu.Lock()
		m.permDenied = true
		m.mu.Unlock()
		return &Outcome{Action: ActionNone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire position: %w", err)
	}
	if pos == nil || pos.AccuracyMeters > m.cfg.AccuracyMeters {
		return &Outcome{Action: ActionNone}, nil
	}

	matches, err := m.matchesAt(pos, schemas)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return &Outcome{Action: ActionNone}, nil
	case 1:
		if err := m.Navigate(matches[0]); err != nil {
			return nil, fmt.Errorf("navigate: %w", err)
		}
		return &Outcome{Action: ActionNavigated, Matches: matches}, nil
	default:
		return &Outcome{Action: ActionChoose, Matches: matches}, nil
	}
}

// Navigate invokes the navigator and marks the target as the record being
// viewed, so the next check at the same spot stays quiet.
func (m *Matcher) Navigate(match models.ProximityMatch) error {
	if err := m.navigator.Navigate(match); err != nil {
		return err
	}
	m.SetViewing(match.Record.ID)
	return nil
}

func (m *Matcher) matchesAt(pos *models.Position, schemas []*store.Schema) ([]models.ProximityMatch, error) {
	m.mu.Lock()
	viewing := m.viewing
	skip := make(map[string]bool, len(m.dismissed))
	for id := range m.dismissed {
		skip[id] = true
	}
	m.mu.Unlock()

	var matches []models.ProximityMatch
	for _, schema := range schemas {
		if !schema.Geo {
			continue
		}
		records, err := m.store.GeoRecords(schema, m.orgID)
		if err != nil {
			return nil, fmt.Errorf("geo records %s: %w", schema.Name, err)
		}
		for _, r := range records {
			if skip[r.ID] || r.ID == viewing {
				continue
			}
			d := Haversine(pos.Latitude, pos.Longitude, r.Latitude, r.Longitude)
			if d > m.cfg.RadiusMeters {
				continue
			}
			matches = append(matches, models.ProximityMatch{
				EntityType:     schema.Name,
				Record:         r.CachedRecord,
				Latitude:       r.Latitude,
				Longitude:      r.Longitude,
				DistanceMeters: d,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})
	return matches, nil
}
