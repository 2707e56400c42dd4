package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smith3v/tutor625/pkg/logger"
)

const tickInterval = time.Second

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNoToggle      = errors.New("screen has no alternate view")
	ErrNotCancelable = errors.New("session already started")
)

// Destination is what the transport renders after a navigation.
type Destination struct {
	SessionID      string
	Screen         Screen
	Params         Params
	ElapsedSeconds int
	StudiedMinutes int
	Paused         bool
	// Refresh is set when the screen did not change and only its controls
	// or clock need redrawing.
	Refresh bool
}

// Navigator renders screens and user-visible alerts.
type Navigator interface {
	Navigate(ctx context.Context, dest Destination) error
	Alert(ctx context.Context, text string) error
}

// Checkpoint is a batch of studied minutes handed to the Store.
type Checkpoint struct {
	SessionID string
	UserID    int64
	Subject   string
	Minutes   int
	Finished  bool
	At        time.Time
}

// Store persists study time and streaks.
type Store interface {
	RecordCheckpoint(ctx context.Context, cp Checkpoint) error
}

// Snapshot is the persistable state of a controller.
type Snapshot struct {
	SessionID      string
	ChatID         int64
	UserID         int64
	State          State
	LastActivityAt time.Time
}

type hooks struct {
	onChange func(Snapshot)
	onFinish func(*Controller)
}

// Controller drives one guided session: it owns the screen, the timer and
// the parameter bag.
type Controller struct {
	mu sync.Mutex

	id     string
	chatID int64
	userID int64
	state  State

	clock Clock
	store Store
	nav   Navigator
	hooks hooks

	ctx    context.Context
	cancel context.CancelFunc

	timerCancel context.CancelFunc
	timerGen    uint64
	wg          sync.WaitGroup

	// reserved counts minutes handed to the store but not yet settled.
	// resetGen invalidates reservations taken before a Reset.
	reserved int
	resetGen uint64
	flushes  sync.WaitGroup

	lastActivity time.Time
	finishing    bool
	closed       bool
}

// NewController builds a controller from a snapshot. The timer does not run
// until Mount is called.
func NewController(snap Snapshot, clock Clock, store Store, nav Navigator) *Controller {
	if clock == nil {
		clock = RealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	last := snap.LastActivityAt
	if last.IsZero() {
		last = clock.Now()
	}
	return &Controller{
		id:           snap.SessionID,
		chatID:       snap.ChatID,
		userID:       snap.UserID,
		state:        snap.State,
		clock:        clock,
		store:        store,
		nav:          nav,
		ctx:          ctx,
		cancel:       cancel,
		lastActivity: last,
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) ChatID() int64 {
	return c.chatID
}

func (c *Controller) UserID() int64 {
	return c.userID
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Mount renders the current screen and starts its timer.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	c.mountLocked()
	dest := c.destinationLocked(false)
	c.mu.Unlock()

	return c.navigate(ctx, dest)
}

// Next follows the transition table from the current screen.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.finishing {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	tr, err := NextTransition(c.state)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("next from %s: %w", c.state.Screen, err)
	}
	if tr.Finish {
		c.mu.Unlock()
		return c.Finish(ctx)
	}

	var cp Checkpoint
	var gen uint64
	if tr.Checkpoint {
		cp, gen = c.reserveLocked(false)
		c.flushes.Add(1)
	}
	c.moveLocked(tr.To)
	dest := c.destinationLocked(false)
	c.mu.Unlock()

	if tr.Checkpoint {
		c.flush(ctx, cp, gen)
	}
	c.changed(c.Snapshot())
	return c.navigate(ctx, dest)
}

// ToggleView switches between a question and its marking scheme. The clock
// keeps running and nothing is flushed.
func (c *Controller) ToggleView(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.finishing {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	target, ok := ToggleTarget(c.state.Screen)
	if !ok {
		c.mu.Unlock()
		return ErrNoToggle
	}
	c.state.Screen = target
	c.touchLocked()
	dest := c.destinationLocked(false)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(snap)
	return c.navigate(ctx, dest)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.control(ctx, func(s *State) { s.Paused = true })
}

func (c *Controller) Resume(ctx context.Context) error {
	return c.control(ctx, func(s *State) { s.Paused = false })
}

// Reset rewinds the clock to the value the session was started with.
func (c *Controller) Reset(ctx context.Context) error {
	return c.control(ctx, func(s *State) {
		s.ElapsedSeconds = s.SeedSeconds
		s.FlushedMinutes = 0
		s.Paused = false
		c.reserved = 0
		c.resetGen++
	})
}

func (c *Controller) control(ctx context.Context, apply func(*State)) error {
	c.mu.Lock()
	if c.closed || c.finishing {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	apply(&c.state)
	c.touchLocked()
	dest := c.destinationLocked(true)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(snap)
	return c.navigate(ctx, dest)
}

// Finish pauses the session, flushes the remaining minutes and marks the
// streak. Checkpoints already on their way to the store are waited for. On
// failure the session is un-paused and stays on its screen.
func (c *Controller) Finish(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.finishing || c.state.Screen == ScreenFinished {
		c.mu.Unlock()
		return nil
	}
	c.finishing = true
	c.state.Paused = true
	c.mu.Unlock()

	c.flushes.Wait()

	c.mu.Lock()
	cp, gen := c.reserveLocked(true)
	c.mu.Unlock()

	if err := c.record(ctx, cp); err != nil {
		c.mu.Lock()
		c.settleLocked(cp, gen, false)
		c.finishing = false
		c.state.Paused = false
		c.mu.Unlock()

		logger.Error("failed to finish guided session", "session_id", c.id, "user_id", c.userID, "error", err)
		c.alert(ctx, "Could not save your study time. Please try again.")
		return fmt.Errorf("finish session: %w", err)
	}

	c.mu.Lock()
	c.finishing = false
	c.settleLocked(cp, gen, true)
	c.moveLocked(ScreenFinished)
	dest := c.destinationLocked(false)
	c.mu.Unlock()

	logger.Info("guided session finished", "session_id", c.id, "user_id", c.userID, "minutes", cp.Minutes)
	if c.hooks.onFinish != nil {
		c.hooks.onFinish(c)
	}
	return c.navigate(ctx, dest)
}

// Cancel drops a session that is still on GuidedStart. Nothing is recorded
// and the streak is left alone.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.closed || c.finishing {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.state.Screen != ScreenGuidedStart {
		c.mu.Unlock()
		return ErrNotCancelable
	}
	c.finishing = true
	c.mu.Unlock()

	logger.Info("guided session cancelled", "session_id", c.id, "user_id", c.userID)
	if c.hooks.onFinish != nil {
		c.hooks.onFinish(c)
		return nil
	}
	c.Close()
	return nil
}

// Close stops the timer and waits for it to exit. In-flight persistence
// calls are cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) moveLocked(to Screen) {
	if c.state.Screen == ScreenExamRedirect && to == ScreenExamQuestion {
		c.state.Params = advanceQuestion(c.state.Params)
	}
	c.state.Screen = to
	c.touchLocked()
	c.mountLocked()
}

func (c *Controller) touchLocked() {
	c.lastActivity = c.clock.Now()
}

// mountLocked replaces the running ticker with one for the current screen.
func (c *Controller) mountLocked() {
	c.stopTimerLocked()
	if c.closed || c.state.Screen == ScreenGuidedStart || c.state.Screen == ScreenFinished {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.timerCancel = cancel
	gen := c.timerGen
	ticker := c.clock.NewTicker(tickInterval)

	c.wg.Add(1)
	go c.runTimer(ctx, ticker, gen)
}

func (c *Controller) stopTimerLocked() {
	c.timerGen++
	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
	}
}

func (c *Controller) runTimer(ctx context.Context, ticker Ticker, gen uint64) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.tickGen(gen)
		}
	}
}

func (c *Controller) tickGen(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen {
		return
	}
	c.tickLocked()
}

func (c *Controller) tickLocked() {
	if c.state.Paused || c.closed {
		return
	}
	c.state.ElapsedSeconds++
	c.state.Params.OverallTime = c.state.ElapsedSeconds
}

// reserveLocked builds a checkpoint for the minutes that are neither flushed
// nor already on their way to the store, and holds them until settled.
func (c *Controller) reserveLocked(finished bool) (Checkpoint, uint64) {
	minutes := c.state.StudyMinutes() - c.reserved
	if minutes < 0 {
		minutes = 0
	}
	c.reserved += minutes
	return Checkpoint{
		SessionID: c.id,
		UserID:    c.userID,
		Subject:   c.state.Params.Subject,
		Minutes:   minutes,
		Finished:  finished,
		At:        c.clock.Now(),
	}, c.resetGen
}

// settleLocked releases a reservation. Saved minutes count as flushed unless
// a Reset happened in between.
func (c *Controller) settleLocked(cp Checkpoint, gen uint64, saved bool) {
	if gen != c.resetGen {
		return
	}
	c.reserved -= cp.Minutes
	if saved {
		c.state.FlushedMinutes += cp.Minutes
	}
}

// flush records an intermediate checkpoint. Failures are reported to the
// user but do not block navigation.
func (c *Controller) flush(ctx context.Context, cp Checkpoint, gen uint64) {
	defer c.flushes.Done()
	if cp.Minutes <= 0 {
		return
	}
	err := c.record(ctx, cp)

	c.mu.Lock()
	c.settleLocked(cp, gen, err == nil)
	c.mu.Unlock()

	if err != nil {
		logger.Error("failed to record study checkpoint", "session_id", c.id, "user_id", c.userID, "error", err)
		c.alert(ctx, "Could not save your study time for this part of the session.")
	}
}

func (c *Controller) record(ctx context.Context, cp Checkpoint) error {
	if c.store == nil {
		return nil
	}
	opCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return c.store.RecordCheckpoint(opCtx, cp)
}

func (c *Controller) destinationLocked(refresh bool) Destination {
	params := c.state.Params
	params.OverallTime = c.state.ElapsedSeconds
	return Destination{
		SessionID:      c.id,
		Screen:         c.state.Screen,
		Params:         params,
		ElapsedSeconds: c.state.ElapsedSeconds,
		StudiedMinutes: c.state.FlushedMinutes,
		Paused:         c.state.Paused,
		Refresh:        refresh,
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:      c.id,
		ChatID:         c.chatID,
		UserID:         c.userID,
		State:          c.state,
		LastActivityAt: c.lastActivity,
	}
}

func (c *Controller) changed(snap Snapshot) {
	if c.hooks.onChange != nil {
		c.hooks.onChange(snap)
	}
}

func (c *Controller) navigate(ctx context.Context, dest Destination) error {
	if c.nav == nil {
		return nil
	}
	if err := c.nav.Navigate(ctx, dest); err != nil {
		logger.Error("failed to render guided session screen", "session_id", c.id, "screen", dest.Screen, "error", err)
		return err
	}
	return nil
}

func (c *Controller) alert(ctx context.Context, text string) {
	if c.nav == nil {
		return
	}
	if err := c.nav.Alert(ctx, text); err != nil {
		logger.Error("failed to send guided session alert", "session_id", c.id, "error", err)
	}
}
