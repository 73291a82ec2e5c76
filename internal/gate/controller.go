// Package gate owns the lock/unlock state machine.
//
// The controller starts Locked unless the persisted unlock record is dated
// today. It leaves Locked through exactly three transitions: a verified
// completion, an explicit emergency override, or the crash fail-safe. Once
// Unlocked it stays Unlocked for the rest of the process. Credential and
// network failures never transition; they only update the status message.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/marcus/dailygate/internal/audit"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
	"github.com/marcus/dailygate/internal/scheduler"
)

// Status messages shown by the presenter
const (
	StatusLocked          = "Solve one LeetCode problem today to unlock"
	StatusSessionExpired  = "Your LeetCode session expired. Update the session cookie to keep checking."
	StatusCheckFailed     = "Could not reach LeetCode; retrying on the next check"
	StatusExitRejected    = "The gate is locked. Solve a problem or use the emergency exit."
	StatusSessionUpdated  = "Session updated successfully"
	StatusSessionRejected = "That cookie didn't work. Please try again."
	StatusSessionUnknown  = "Could not validate right now; the cookie was kept. If this persists, paste it again."
	StatusEmptyCredential = "Please paste a cookie value"
)

// Fetcher answers "did the user complete the task today?"
type Fetcher interface {
	FetchTodayCompletion(ctx context.Context) (*models.AchievementEvent, error)
}

// RecordStore persists the most recent unlock record
type RecordStore interface {
	Load() (models.UnlockRecord, bool)
	Save(models.UnlockRecord) error
}

// Deps are the controller's collaborators
type Deps struct {
	Fetcher     Fetcher
	Records     RecordStore
	Credentials credential.Store
	Scheduler   scheduler.Scheduler
	Presenter   Presenter
	Audit       *audit.Logger
	Now         func() time.Time
	Location    *time.Location
}

// Controller is the gate state machine. All transitions and user actions
// are serialized; poll fetches are serialized separately so an override
// never waits on the network.
type Controller struct {
	fetcher   Fetcher
	records   RecordStore
	creds     credential.Store
	sched     scheduler.Scheduler
	presenter Presenter
	audit     *audit.Logger
	now       func() time.Time
	loc       *time.Location

	// fetchMu serializes network checks (ticks and credential validation).
	fetchMu sync.Mutex

	mu       sync.Mutex
	unlocked bool
	started  bool
	record   models.UnlockRecord
	saveErr  error
	status   string

	done     chan struct{}
	doneOnce sync.Once
}

// New builds a controller. Nil Presenter, Audit and Now get harmless defaults.
func New(d Deps) *Controller {
	c := &Controller{
		fetcher:   d.Fetcher,
		records:   d.Records,
		creds:     d.Credentials,
		sched:     d.Scheduler,
		presenter: d.Presenter,
		audit:     d.Audit,
		now:       d.Now,
		loc:       d.Location,
		status:    StatusLocked,
		done:      make(chan struct{}),
	}
	if c.presenter == nil {
		c.presenter = NopPresenter{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	return c
}

// SetPresenter attaches the presentation adapter. It must be called before
// Start.
func (c *Controller) SetPresenter(p Presenter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		p = NopPresenter{}
	}
	c.presenter = p
}

// Today returns the current calendar day in the gate's timezone
func (c *Controller) Today() string {
	return models.Day(c.now(), c.loc)
}

// InitialState derives the state from the persisted record without side
// effects. A record from any day but today yields Locked.
func (c *Controller) InitialState() models.GateState {
	rec, _ := c.records.Load()
	return models.StateFor(rec, c.Today())
}

// State returns the current state. Unlocked is terminal for the process;
// while Locked the state is re-derived from the persisted record.
func (c *Controller) State() models.GateState {
	if c.isUnlocked() {
		return models.StateUnlocked
	}
	return c.InitialState()
}

// Status returns the last status message
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Record returns the record written by this run's unlock, if any
func (c *Controller) Record() (models.UnlockRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record, c.unlocked
}

// Done is closed once the gate unlocks
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start decides the initial state. When already unlocked today it returns
// StateUnlocked and shows nothing. Otherwise it shows the locked screen and
// starts the poller.
func (c *Controller) Start(ctx context.Context) (models.GateState, error) {
	if !c.markStarted() {
		return models.StateLocked, errors.New("gate: already started")
	}

	rec, _ := c.records.Load()
	if models.StateFor(rec, c.Today()) == models.StateUnlocked {
		c.mu.Lock()
		c.unlocked = true
		c.record = rec
		c.mu.Unlock()
		slog.Info("gate: already unlocked today", "reason", rec.Reason, "date", rec.Date)
		c.finish()
		return models.StateUnlocked, nil
	}

	c.mu.Lock()
	presenter := c.presenter
	c.mu.Unlock()

	presenter.ShowLocked()
	c.report(StatusLocked)
	c.audit.Printf("Gate locked (last unlock: %s)", describe(rec))

	if err := c.sched.Start(ctx, c.Tick); err != nil {
		return models.StateLocked, fmt.Errorf("start poller: %w", err)
	}
	return models.StateLocked, nil
}

func (c *Controller) markStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return false
	}
	c.started = true
	return true
}

// Tick runs one verification. It is skipped when the gate is already
// unlocked or another check is in flight.
func (c *Controller) Tick(ctx context.Context) {
	defer c.recoverToFailsafe()

	if c.isUnlocked() {
		return
	}
	if !c.fetchMu.TryLock() {
		slog.Debug("gate: check already in flight, skipping tick")
		return
	}
	defer c.fetchMu.Unlock()

	ev, err := c.fetcher.FetchTodayCompletion(ctx)

	switch gateerr.KindOf(err) {
	case gateerr.KindNone:
		if ev == nil {
			slog.Debug("gate: no completion today yet")
			if c.Status() != StatusLocked {
				c.report(StatusLocked)
			}
			return
		}
		if c.transition(models.ReasonSolved, ev.ID) {
			slog.Info("gate: completion verified", "id", ev.ID, "title", ev.Title)
		}

	case gateerr.KindCredentialInvalid:
		if c.isUnlocked() {
			return
		}
		cleared := false
		if _, getErr := c.creds.Get(); getErr == nil {
			if clearErr := c.creds.Clear(); clearErr != nil {
				slog.Warn("gate: clear invalid credential", "err", clearErr)
			} else {
				cleared = true
			}
		}
		// Audit once per expiry, not once per tick while no cookie is stored.
		if !cleared && c.Status() == StatusSessionExpired {
			slog.Debug("gate: still no valid credential", "err", err)
			return
		}
		c.audit.Printf("check_status: credential invalid: %v", err)
		c.report(StatusSessionExpired)

	case gateerr.KindTransient:
		slog.Debug("gate: transient check failure", "err", err)
		c.audit.Printf("check_status error: %v", err)
		if c.Status() != StatusSessionExpired {
			c.report(StatusCheckFailed)
		}

	default:
		c.Failsafe(err, nil)
	}
}

// Override is the emergency exit. Every use is written to the audit log.
func (c *Controller) Override() error {
	defer c.recoverToFailsafe()
	if c.isUnlocked() {
		return nil
	}
	c.audit.Printf("Emergency exit used at %s", c.now().In(c.loc).Format(time.RFC3339))
	c.transition(models.ReasonEmergencyOverride, "")
	return c.lastSaveErr()
}

// MarkSolved records a verified completion. Calling it again the same day
// rewrites today's record and is not an error.
func (c *Controller) MarkSolved(sourceID string) error {
	defer c.recoverToFailsafe()
	if !c.transition(models.ReasonSolved, sourceID) {
		func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.unlockLocked(models.ReasonSolved, sourceID)
		}()
	}
	return c.lastSaveErr()
}

// RequestExit is the close guard: it accepts only once unlocked.
func (c *Controller) RequestExit() bool {
	defer c.recoverToFailsafe()
	if c.isUnlocked() {
		return true
	}
	c.audit.Printf("Exit attempt rejected while locked")
	c.report(StatusExitRejected)
	return false
}

// recoverToFailsafe turns a panic into the crash fail-safe. Every entry
// point called from scheduler or presenter goroutines defers it directly.
func (c *Controller) recoverToFailsafe() {
	if r := recover(); r != nil {
		c.Failsafe(r, debug.Stack())
	}
}

// Failsafe persists a crash-failsafe unlock and releases the gate. It is
// safe to call from a deferred recover and never panics itself.
func (c *Controller) Failsafe(cause any, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("gate: fail-safe persistence failed", "panic", r)
			c.finishSafely()
		}
	}()

	c.audit.Block(fmt.Sprintf("Fatal: %v", cause), string(stack))
	slog.Error("gate: fatal fault, unlocking", "cause", cause)
	c.transition(models.ReasonCrashFailsafe, "")
}

// transition moves Locked -> Unlocked. It reports false, writing nothing,
// when the gate was already unlocked.
func (c *Controller) transition(reason models.UnlockReason, sourceID string) bool {
	ok := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.unlocked {
			return false
		}
		c.unlockLocked(reason, sourceID)
		return true
	}()
	if ok {
		c.finish()
	}
	return ok
}

func (c *Controller) report(msg string) {
	c.mu.Lock()
	c.status = msg
	presenter := c.presenter
	c.mu.Unlock()
	presenter.ReportStatus(msg)
}

func (c *Controller) lastSaveErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveErr
}

// unlockLocked persists today's record and marks the run unlocked.
// c.mu must be held. A persistence failure is logged and kept in saveErr;
// the gate still unlocks because the reason is already established.
func (c *Controller) unlockLocked(reason models.UnlockReason, sourceID string) {
	now := c.now()
	rec := models.UnlockRecord{
		Date:       models.Day(now, c.loc),
		Reason:     reason,
		SourceID:   sourceID,
		UnlockedAt: now,
	}

	c.saveErr = nil
	if err := c.records.Save(rec); err != nil {
		c.saveErr = fmt.Errorf("save unlock record: %w", err)
		slog.Error("gate: persist unlock", "reason", reason, "err", err)
		c.audit.Printf("Failed to persist unlock (%s): %v", reason, err)
	}

	if sourceID != "" {
		c.audit.Printf("Unlocked by: %s:%s", reason, sourceID)
	} else {
		c.audit.Printf("Unlocked by: %s", reason)
	}

	c.unlocked = true
	c.record = rec
	if c.sched != nil {
		c.sched.Stop()
	}
}

// finish stops the poller and terminates the presenter exactly once.
// It must be called without c.mu held.
func (c *Controller) finish() {
	c.doneOnce.Do(func() {
		if c.sched != nil {
			c.sched.Stop()
		}
		c.mu.Lock()
		presenter := c.presenter
		c.mu.Unlock()
		close(c.done)
		presenter.Terminate()
	})
}

func (c *Controller) finishSafely() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("gate: terminate after fail-safe", "panic", r)
		}
	}()
	c.mu.Lock()
	c.unlocked = true
	c.mu.Unlock()
	c.finish()
}

func (c *Controller) isUnlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocked
}

func describe(rec models.UnlockRecord) string {
	if rec.IsZero() {
		return "never"
	}
	parts := []string{rec.Date, string(rec.Reason)}
	if rec.SourceID != "" {
		parts = append(parts, rec.SourceID)
	}
	return strings.Join(parts, " ")
}
