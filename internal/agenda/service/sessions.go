package service

import (
	"sync"
	"time"

	"barberdesk/pkg/logger"
	"barberdesk/pkg/model"
)

// dashboard is the state one operator works on. mu guards every field.
//
// date is the selected day and moves as soon as a reconciliation starts.
// slotsDate is the day slots belongs to and only moves together with slots.
type dashboard struct {
	mu sync.Mutex

	date         time.Time
	slotsDate    time.Time
	slots        []*model.TimeSlot
	appointments []*model.Appointment
	loaded       bool
	generation   uint64
	settled      uint64
	lastSeen     time.Time
}

// begin starts a reconciliation of date and returns its generation. Must be
// called with mu held.
func (d *dashboard) begin(date time.Time) uint64 {
	d.generation++
	d.date = date
	return d.generation
}

// current reports whether a reconciliation started as (gen, date) is still
// the latest one. Must be called with mu held.
func (d *dashboard) current(gen uint64, date time.Time) bool {
	return d.generation == gen && d.date.Equal(date)
}

// settle replaces the list with the result of reconciliation gen. Must be
// called with mu held.
func (d *dashboard) settle(gen uint64, date time.Time, list []*model.TimeSlot) {
	d.slots = list
	d.slotsDate = date
	d.settled = gen
}

// pending reports whether the latest reconciliation has not finished yet.
// Must be called with mu held.
func (d *dashboard) pending() bool {
	return d.generation != d.settled
}

// SessionStore keeps one dashboard per operator subject. Dashboards idle for
// longer than ttl are dropped by a background sweep.
type SessionStore struct {
	mu         sync.Mutex
	dashboards map[string]*dashboard
	ttl        time.Duration
	interval   time.Duration
	log        *logger.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewSessionStore(ttl time.Duration, log *logger.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	s := &SessionStore{
		dashboards: make(map[string]*dashboard),
		ttl:        ttl,
		interval:   min(ttl, 10*time.Minute),
		log:        log,
		stopCh:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// get returns the dashboard of subject, creating it on first use.
func (s *SessionStore) get(subject string) *dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dashboards[subject]
	if !ok {
		d = &dashboard{}
		s.dashboards[subject] = d
	}
	d.mu.Lock()
	d.lastSeen = time.Now()
	d.mu.Unlock()
	return d
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dashboards)
}

func (s *SessionStore) cleanup() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *SessionStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, d := range s.dashboards {
		d.mu.Lock()
		idle := now.Sub(d.lastSeen) > s.ttl
		d.mu.Unlock()
		if idle {
			delete(s.dashboards, subject)
		}
	}

	s.log.Debug("Dashboard sessions swept", "remaining", len(s.dashboards))
}

func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
