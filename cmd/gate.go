package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/dailygate/internal/achievement"
	"github.com/marcus/dailygate/internal/audit"
	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gate"
	"github.com/marcus/dailygate/internal/instance"
	"github.com/marcus/dailygate/internal/models"
	"github.com/marcus/dailygate/internal/output"
	"github.com/marcus/dailygate/internal/scheduler"
	"github.com/marcus/dailygate/internal/state"
	"github.com/marcus/dailygate/internal/tui/lockscreen"
)

// screenExitGrace bounds the wait for the lock screen to tear down after
// an unlock
const screenExitGrace = 2 * time.Second

// screen is the presenter the gate command drives
type screen interface {
	gate.Presenter
	Exited() <-chan struct{}
	Wait() error
	Kill()
}

type gateOutcome int

const (
	outcomeAlreadyUnlocked gateOutcome = iota
	outcomeUnlocked
	outcomeFailOpen
	outcomeAlreadyRunning
	outcomeAbandoned
)

// gateRunner holds the seams the gate command is assembled from
type gateRunner struct {
	load        func() (*config.Config, error)
	fallback    func() *config.Config
	newScreen   func(cfg *config.Config, ctrl *gate.Controller, last models.UnlockRecord) (screen, error)
	signals     func() (<-chan os.Signal, func())
	now         func() time.Time
	redirectLog bool
	out         io.Writer
}

func newGateRunner() *gateRunner {
	return &gateRunner{
		load:        loadConfig,
		fallback:    fallbackConfig,
		newScreen:   newLockScreen,
		signals:     notifySignals,
		now:         time.Now,
		redirectLog: true,
		out:         os.Stdout,
	}
}

func notifySignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

// runGate runs one gate session. Every path ends in a clean return: the
// process exit status is 0 whether the gate unlocked, was already unlocked,
// or failed open.
func runGate(ctx context.Context, r *gateRunner) gateOutcome {
	cfg, err := r.load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		output.Error("config: %v", err)
		if cfg == nil {
			cfg = r.fallback()
		}
		return r.failOpen(cfg, fmt.Errorf("load config: %w", err), nil)
	}

	slog.Info("gate: start", "version", version, "state", cfg.StatePath, "timezone", cfg.Location)

	lock := instance.New(cfg.LockPath)
	if err := lock.TryAcquire(); err != nil {
		if errors.Is(err, instance.ErrHeld) {
			fmt.Fprintf(r.out, "dailygate is already running (%v)\n", err)
			return outcomeAlreadyRunning
		}
		slog.Warn("gate: single-instance lock unavailable", "path", cfg.LockPath, "err", err)
	}
	defer lock.Release()

	return r.run(ctx, cfg)
}

// failOpen records a crash-failsafe unlock without a fully built gate
func (r *gateRunner) failOpen(cfg *config.Config, cause any, stack []byte) gateOutcome {
	ctrl := gate.New(gate.Deps{
		Records:  state.New(cfg.StatePath),
		Audit:    audit.New(cfg.LogPath, audit.WithClock(r.now), audit.WithLocation(cfg.Location)),
		Now:      r.now,
		Location: cfg.Location,
	})
	ctrl.Failsafe(cause, stack)
	fmt.Fprintln(r.out, "dailygate failed and unlocked for today; details are in", cfg.LogPath)
	return outcomeFailOpen
}

func (r *gateRunner) run(ctx context.Context, cfg *config.Config) (outcome gateOutcome) {
	var (
		ctrl *gate.Controller
		scr  screen
	)
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if scr != nil {
			scr.Kill()
		}
		if ctrl == nil {
			outcome = r.failOpen(cfg, p, debug.Stack())
			return
		}
		ctrl.Failsafe(p, debug.Stack())
		outcome = outcomeFailOpen
	}()

	records := state.New(cfg.StatePath)
	auditLog := audit.New(cfg.LogPath, audit.WithClock(r.now), audit.WithLocation(cfg.Location))

	creds, err := credential.Open(cfg)
	if err != nil {
		return r.failOpen(cfg, err, nil)
	}

	sched := scheduler.NewTicker(cfg.PollInterval, cfg.InitialDelay)
	ctrl = gate.New(gate.Deps{
		Fetcher:     achievement.New(cfg, creds, achievement.WithClock(r.now)),
		Records:     records,
		Credentials: creds,
		Scheduler:   sched,
		Audit:       auditLog,
		Now:         r.now,
		Location:    cfg.Location,
	})

	last, _ := records.Load()
	scr, err = r.newScreen(cfg, ctrl, last)
	if err != nil {
		ctrl.Failsafe(fmt.Errorf("build lock screen: %w", err), nil)
		return outcomeFailOpen
	}
	ctrl.SetPresenter(scr)

	if r.redirectLog && models.StateFor(last, ctrl.Today()) == models.StateLocked {
		if restore, err := redirectLogging(cfg.DebugLogPath); err == nil {
			defer restore()
		}
	}

	st, err := ctrl.Start(ctx)
	if err != nil {
		ctrl.Failsafe(err, nil)
		r.waitScreen(scr)
		return outcomeFailOpen
	}
	if st == models.StateUnlocked {
		rec, _ := ctrl.Record()
		fmt.Fprintf(r.out, "Already unlocked today (%s)\n", rec.Reason)
		return outcomeAlreadyUnlocked
	}

	sigs, stop := r.signals()
	defer stop()

	for {
		select {
		case <-ctrl.Done():
			r.waitScreen(scr)
			sched.Wait()
			rec, _ := ctrl.Record()
			fmt.Fprintf(r.out, "Unlocked: %s\n", describeRecord(rec))
			if rec.Reason == models.ReasonCrashFailsafe {
				return outcomeFailOpen
			}
			return outcomeUnlocked

		case <-scr.Exited():
			select {
			case <-ctrl.Done():
				continue
			default:
			}
			err := scr.Wait()
			if errors.Is(err, tea.ErrProgramPanic) {
				// bubbletea recovered a panic in the screen or in an action
				// it ran; that is a crash, not a lost terminal.
				ctrl.Failsafe(err, nil)
				sched.Wait()
				fmt.Fprintln(r.out, "dailygate failed and unlocked for today; details are in", cfg.LogPath)
				return outcomeFailOpen
			}
			// The terminal went away while locked. Nothing is written, so
			// the next launch locks again.
			auditLog.Printf("Lock screen closed while locked: %v", err)
			slog.Warn("gate: lock screen exited while locked", "err", err)
			sched.Stop()
			return outcomeAbandoned

		case sig := <-sigs:
			if ctrl.RequestExit() {
				scr.Kill()
				return outcomeUnlocked
			}
			slog.Info("gate: signal ignored while locked", "signal", sig)
		}
	}
}

func (r *gateRunner) waitScreen(scr screen) {
	if scr == nil {
		return
	}
	select {
	case <-scr.Exited():
	case <-time.After(screenExitGrace):
		scr.Kill()
	}
}

func describeRecord(rec models.UnlockRecord) string {
	if rec.SourceID != "" {
		return fmt.Sprintf("%s (%s)", rec.Reason, rec.SourceID)
	}
	return string(rec.Reason)
}

// newLockScreen builds the full-screen presenter. Help markdown is rendered
// here, before the program owns the terminal.
func newLockScreen(cfg *config.Config, ctrl *gate.Controller, last models.UnlockRecord) (screen, error) {
	help, err := output.RenderMarkdownWithWidth(lockscreen.HelpMarkdown, 64)
	if err != nil {
		slog.Debug("gate: render help", "err", err)
		help = lockscreen.HelpMarkdown
	}

	lastUnlock := ""
	if !last.IsZero() {
		lastUnlock = last.Date + " " + describeRecord(last)
	}

	m := lockscreen.NewModel(ctrl, lockscreen.Options{
		URLs: lockscreen.URLs{
			Daily:    cfg.DailyURL,
			Problems: cfg.ProblemsURL,
			Login:    cfg.LoginURL,
		},
		Open:       openURL,
		Today:      ctrl.Today(),
		LastUnlock: lastUnlock,
		Interval:   cfg.PollInterval,
		HelpText:   help,
	})
	return lockscreen.NewPresenter(m, tea.WithAltScreen(), tea.WithoutSignalHandler()), nil
}
