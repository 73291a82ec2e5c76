package gate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gateerr"
)

// ValidationOutcome is the result of a credential update
type ValidationOutcome int

const (
	// ValidationOK: the source accepted the credential
	ValidationOK ValidationOutcome = iota
	// ValidationInvalid: the source rejected it; it was removed again
	ValidationInvalid
	// ValidationUncertain: the check failed transiently; the credential was kept
	ValidationUncertain
	// ValidationEmpty: nothing was submitted; the store is untouched
	ValidationEmpty
	// ValidationStoreFailed: the credential could not be written
	ValidationStoreFailed
)

func (o ValidationOutcome) String() string {
	switch o {
	case ValidationOK:
		return "ok"
	case ValidationInvalid:
		return "invalid"
	case ValidationUncertain:
		return "uncertain"
	case ValidationEmpty:
		return "empty"
	case ValidationStoreFailed:
		return "store-failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Validation reports what happened to a submitted credential
type Validation struct {
	Outcome ValidationOutcome
	Message string
	Err     error
}

// SessionManager runs the user-triggered credential update flow: store the
// candidate, check it once, and remove it only on proof of invalidity.
type SessionManager struct {
	creds   credential.Store
	fetcher Fetcher
	audit   auditPrinter
}

type auditPrinter interface {
	Printf(format string, args ...any)
}

// NewSessionManager returns a manager over the given store and fetcher
func NewSessionManager(creds credential.Store, fetcher Fetcher, audit auditPrinter) *SessionManager {
	return &SessionManager{creds: creds, fetcher: fetcher, audit: audit}
}

func (s *SessionManager) Get() (string, error) { return s.creds.Get() }
func (s *SessionManager) Set(token string) error { return s.creds.Set(token) }
func (s *SessionManager) Clear() error { return s.creds.Clear() }

// Validate stores token and checks it with one fetch. A transient failure
// keeps the token so flaky connectivity never discards a good credential.
func (s *SessionManager) Validate(ctx context.Context, token string) Validation {
	token = strings.TrimSpace(token)
	if token == "" {
		return Validation{Outcome: ValidationEmpty, Message: StatusEmptyCredential}
	}

	if err := s.creds.Set(token); err != nil {
		s.printf("Validation error: store credential: %v", err)
		return Validation{Outcome: ValidationStoreFailed, Message: fmt.Sprintf("Could not save the cookie: %v", err), Err: err}
	}

	_, err := s.fetcher.FetchTodayCompletion(ctx)
	switch gateerr.KindOf(err) {
	case gateerr.KindNone:
		slog.Info("session: credential validated")
		return Validation{Outcome: ValidationOK, Message: StatusSessionUpdated}

	case gateerr.KindCredentialInvalid:
		if clearErr := s.creds.Clear(); clearErr != nil {
			slog.Warn("session: clear rejected credential", "err", clearErr)
		}
		s.printf("Validation rejected credential: %v", err)
		return Validation{Outcome: ValidationInvalid, Message: StatusSessionRejected, Err: err}

	default:
		s.printf("Validation error: %v", err)
		return Validation{Outcome: ValidationUncertain, Message: StatusSessionUnknown, Err: err}
	}
}

func (s *SessionManager) printf(format string, args ...any) {
	if s.audit != nil {
		s.audit.Printf(format, args...)
	}
}

// SubmitCredential validates a new credential on behalf of the presenter.
// It waits for any in-flight poll so the two never race on the store. It
// never unlocks by itself; the next tick picks up a completion.
func (c *Controller) SubmitCredential(ctx context.Context, token string) (v Validation) {
	defer func() {
		if r := recover(); r != nil {
			c.Failsafe(r, debug.Stack())
			v = Validation{Outcome: ValidationUncertain, Message: StatusSessionUnknown, Err: fmt.Errorf("validate credential: %v", r)}
		}
	}()

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	v = NewSessionManager(c.creds, c.fetcher, c.audit).Validate(ctx, token)
	switch v.Outcome {
	case ValidationOK:
		c.report(StatusSessionUpdated)
	case ValidationInvalid:
		c.report(StatusSessionRejected)
	case ValidationUncertain:
		c.report(StatusSessionUnknown)
	}
	return v
}
