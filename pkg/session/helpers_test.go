package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 4, 16, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	tk := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.mu.Lock()
	c.tickers = append(c.tickers, tk)
	c.mu.Unlock()
	return tk
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) latest(t *testing.T) *fakeTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		t.Fatalf("expected a running ticker")
	}
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (tk *fakeTicker) C() <-chan time.Time { return tk.ch }

func (tk *fakeTicker) Stop() {
	tk.once.Do(func() { close(tk.stopped) })
}

func (tk *fakeTicker) fire(t *testing.T) {
	t.Helper()
	select {
	case tk.ch <- time.Time{}:
	case <-time.After(time.Second):
		t.Fatalf("tick was not consumed")
	}
}

func (tk *fakeTicker) isStopped() bool {
	select {
	case <-tk.stopped:
		return true
	default:
		return false
	}
}

type recordingNavigator struct {
	mu     sync.Mutex
	dests  []Destination
	alerts []string
}

func (n *recordingNavigator) Navigate(_ context.Context, dest Destination) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dests = append(n.dests, dest)
	return nil
}

func (n *recordingNavigator) Alert(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, text)
	return nil
}

func (n *recordingNavigator) last(t *testing.T) Destination {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.dests) == 0 {
		t.Fatalf("expected a navigation")
	}
	return n.dests[len(n.dests)-1]
}

func (n *recordingNavigator) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type recordingStore struct {
	mu          sync.Mutex
	err         error
	checkpoints []Checkpoint
}

func (s *recordingStore) RecordCheckpoint(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.checkpoints = append(s.checkpoints, cp)
	return nil
}

func (s *recordingStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingStore) recorded() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Checkpoint(nil), s.checkpoints...)
}

var errStoreDown = errors.New("store down")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestController(clock Clock, store Store, nav Navigator, state State) *Controller {
	return NewController(Snapshot{SessionID: "s-1", ChatID: 10, UserID: 20, State: state}, clock, store, nav)
}

// tick advances the clock by one second without a ticker.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickLocked()
}

func (c *Controller) isFinishing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishing
}

// gatedStore holds its first checkpoint until release is closed.
type gatedStore struct {
	recordingStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) RecordCheckpoint(ctx context.Context, cp Checkpoint) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.recordingStore.RecordCheckpoint(ctx, cp)
}
