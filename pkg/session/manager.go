package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/tutor625/pkg/logger"
)

const (
	DefaultInactivityTimeout = 2 * time.Hour
	SweeperInterval          = time.Minute
)

// Manager keeps one live controller per chat and user.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Controller
	clock      Clock
	store      Store
	inactivity time.Duration
	persist    bool
}

// NewManager initializes a manager. Snapshots are written to the database
// only when persist is set.
func NewManager(clock Clock, store Store, inactivity time.Duration, persist bool) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	if inactivity <= 0 {
		inactivity = DefaultInactivityTimeout
	}
	return &Manager{
		sessions:   make(map[string]*Controller),
		clock:      clock,
		store:      store,
		inactivity: inactivity,
		persist:    persist,
	}
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// StartOrRestart replaces any running session with a new one on the start
// screen.
func (m *Manager) StartOrRestart(ctx context.Context, chatID, userID int64, params Params, nav Navigator) (*Controller, error) {
	snap := Snapshot{
		SessionID:      uuid.NewString(),
		ChatID:         chatID,
		UserID:         userID,
		State:          NewState(params),
		LastActivityAt: m.clock.Now(),
	}
	c := m.install(snap, nav)
	m.save(snap)
	logger.Info("guided session started", "session_id", snap.SessionID, "user_id", userID, "subject", params.Subject)
	return c, c.Mount(ctx)
}

// Get returns the live controller, if any.
func (m *Manager) Get(chatID, userID int64) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionKey(chatID, userID)]
}

// Resume returns the live controller or rebuilds one from its persisted
// snapshot. It returns nil when there is nothing to resume.
func (m *Manager) Resume(ctx context.Context, chatID, userID int64, nav Navigator) (*Controller, error) {
	if c := m.Get(chatID, userID); c != nil {
		return c, nil
	}
	if !m.persist {
		return nil, nil
	}
	snap, err := LoadRecord(chatID, userID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.State.Screen == ScreenFinished {
		return nil, nil
	}
	snap.LastActivityAt = m.clock.Now()
	c := m.install(*snap, nav)
	logger.Info("guided session resumed", "session_id", snap.SessionID, "user_id", userID, "screen", snap.State.Screen)
	return c, c.Mount(ctx)
}

func (m *Manager) install(snap Snapshot, nav Navigator) *Controller {
	c := NewController(snap, m.clock, m.store, nav)
	c.hooks = hooks{
		onChange: m.save,
		onFinish: m.finished,
	}

	key := sessionKey(snap.ChatID, snap.UserID)
	m.mu.Lock()
	prev := m.sessions[key]
	m.sessions[key] = c
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return c
}

func (m *Manager) finished(c *Controller) {
	key := sessionKey(c.chatID, c.userID)
	m.mu.Lock()
	if m.sessions[key] == c {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	c.Close()
	if m.persist {
		if err := DeleteRecord(c.chatID, c.userID); err != nil {
			logger.Error("failed to delete guided session record", "session_id", c.id, "error", err)
		}
	}
}

func (m *Manager) save(snap Snapshot) {
	if !m.persist {
		return
	}
	if err := SaveRecord(snap); err != nil {
		logger.Error("failed to persist guided session", "session_id", snap.SessionID, "error", err)
	}
}

// StartSweeper closes idle sessions until ctx is canceled.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.SweepInactive()
		}
	}
}

// SweepInactive closes sessions idle longer than the inactivity timeout. Their
// snapshot stays in the database so the user can resume later.
func (m *Manager) SweepInactive() int {
	cutoff := m.clock.Now().Add(-m.inactivity)

	var idle []*Controller
	m.mu.Lock()
	for key, c := range m.sessions {
		if c.LastActivity().Before(cutoff) {
			idle = append(idle, c)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, c := range idle {
		m.save(c.Snapshot())
		c.Close()
		logger.Debug("closed idle guided session", "session_id", c.id, "user_id", c.userID)
	}
	return len(idle)
}

// CloseAll stops every live timer, saving the latest snapshots.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Controller, 0, len(m.sessions))
	for key, c := range m.sessions {
		all = append(all, c)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, c := range all {
		m.save(c.Snapshot())
		c.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
