// Package pending remembers that the bot asked a user a question and is
// waiting for the answer as their next message.
package pending

import (
	"context"
	"sync"
	"time"
)

// Kind names what the next message will be used for.
type Kind string

const (
	KindAsk     Kind = "ask"
	KindAddCard Kind = "addcard"
)

const DefaultTimeout = 5 * time.Minute

type Prompt struct {
	Kind      Kind
	ChatID    int64
	Subject   string
	ExpiresAt time.Time
}

type Manager struct {
	mu      sync.Mutex
	pending map[int64]Prompt
	now     func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		pending: make(map[int64]Prompt),
		now:     now,
	}
}

var DefaultManager = NewManager(nil)

func ResetDefaultManager(now func() time.Time) {
	DefaultManager = NewManager(now)
}

// Start replaces whatever the user was asked before.
func (m *Manager) Start(userID int64, p Prompt, timeout time.Duration) {
	if m == nil || userID == 0 || p.ChatID == 0 {
		return
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ExpiresAt = m.now().Add(timeout)
	m.pending[userID] = p
}

// Consume returns and forgets the prompt if it is still live and belongs to
// this chat.
func (m *Manager) Consume(userID, chatID int64) (Prompt, bool) {
	if m == nil || userID == 0 || chatID == 0 {
		return Prompt{}, false
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pending[userID]
	if !ok || entry.ChatID != chatID {
		return Prompt{}, false
	}
	delete(m.pending, userID)
	if entry.ExpiresAt.IsZero() || !now.Before(entry.ExpiresAt) {
		return Prompt{}, false
	}
	return entry, true
}

// Cancel drops any prompt for the user.
func (m *Manager) Cancel(userID int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
}

func (m *Manager) SweepExpired() int {
	if m == nil {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, entry := range m.pending {
		if entry.ExpiresAt.IsZero() || !now.Before(entry.ExpiresAt) {
			delete(m.pending, userID)
			removed++
		}
	}
	return removed
}

func (m *Manager) StartSweeper(ctx context.Context) {
	if m == nil || ctx == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}
