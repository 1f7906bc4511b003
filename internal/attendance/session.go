package attendance

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Session is a snapshot of the open attendance session.
type Session struct {
	Date          time.Time
	Period        string
	OpenedAt      time.Time
	ExpiresAt     time.Time
	LateStartedAt *time.Time // nil until late counting starts
}

// LateCounting reports whether late counting has started.
func (s Session) LateCounting() bool {
	return s.LateStartedAt != nil
}

// SessionManager owns the single process-wide attendance session.
// Expiry is evaluated lazily against opened-at plus the TTL.
type SessionManager struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	current *Session
}

// NewSessionManager creates a session manager. A nil clock uses time.Now.
func NewSessionManager(ttl time.Duration, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{ttl: ttl, now: now}
}

// Now returns the manager's current time.
func (sm *SessionManager) Now() time.Time {
	return sm.now()
}

// Open starts a session for date and period, replacing any active session.
func (sm *SessionManager) Open(date time.Time, period string) Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	sm.current = &Session{
		Date:      database.DateOnly(date),
		Period:    period,
		OpenedAt:  now,
		ExpiresAt: now.Add(sm.ttl),
	}
	return *sm.current
}

// StartLateCounting marks now as the start of late counting. Calling it
// again restarts the late window.
func (sm *SessionManager) StartLateCounting() (Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if !sm.activeLocked(now) {
		return Session{}, ErrSessionNotOpen
	}
	sm.current.LateStartedAt = &now
	return sm.snapshotLocked(), nil
}

// Close discards the session including the late-counting marker.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	sm.current = nil
	sm.mu.Unlock()
}

// Current returns the open session, if any.
func (sm *SessionManager) Current() (Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.activeLocked(sm.now()) {
		return Session{}, false
	}
	return sm.snapshotLocked(), true
}

func (sm *SessionManager) activeLocked(now time.Time) bool {
	if sm.current == nil {
		return false
	}
	if !now.Before(sm.current.ExpiresAt) {
		sm.current = nil
		return false
	}
	return true
}

func (sm *SessionManager) snapshotLocked() Session {
	s := *sm.current
	if s.LateStartedAt != nil {
		t := *s.LateStartedAt
		s.LateStartedAt = &t
	}
	return s
}
