package gateerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"plain error is fatal", errors.New("boom"), KindFatal},
		{"credential", CredentialInvalid("fetch", "HTTP 401"), KindCredentialInvalid},
		{"transient", Transient("fetch", context.DeadlineExceeded), KindTransient},
		{"wrapped", fmt.Errorf("tick: %w", Transient("fetch", errors.New("eof"))), KindTransient},
		{"corrupt", New(KindPersistenceCorrupt, "load", errors.New("bad json")), KindPersistenceCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := Transient("fetch", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the wrapped cause")
	}
	if !Is(err, KindTransient) {
		t.Error("expected Is(KindTransient)")
	}
}

func TestErrorMessage(t *testing.T) {
	err := CredentialInvalid("fetch", "no credential stored")
	want := "fetch: credential-invalid: no credential stored"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
