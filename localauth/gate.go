// Package localauth obtains fresh proof of user presence or identity
// before a key store operation is allowed to proceed. A successful prompt
// yields a single-use Grant scoped to the immediately following key store
// call.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Kind selects how the user proves their identity. It is chosen once when
// the gate is constructed and never changes for the lifetime of the
// authenticator; switching kinds means regenerating keys.
type Kind int

const (
	// KindBiometric covers the face/fingerprint class of verification.
	KindBiometric Kind = iota + 1
	// KindDeviceCredential covers the passcode/PIN class.
	KindDeviceCredential
)

func (k Kind) String() string {
	switch k {
	case KindBiometric:
		return "biometric"
	case KindDeviceCredential:
		return "device-credential"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Device describes the verification methods the platform reports as
// usable. The gate consults it before showing any prompt.
type Device struct {
	BiometryEnrolled bool
	PasscodeSet      bool
}

// PreferredKind picks the verification kind for a device: biometric when a
// usable biometric class is enrolled, else the device credential, else
// ErrUnavailable.
func PreferredKind(d Device) (Kind, error) {
	switch {
	case d.BiometryEnrolled:
		return KindBiometric, nil
	case d.PasscodeSet:
		return KindDeviceCredential, nil
	default:
		return 0, ErrUnavailable
	}
}

var (
	// ErrUnavailable means no usable verification method exists on the
	// device; no prompt is shown.
	ErrUnavailable = errors.New("localauth: no usable authentication method")

	// ErrCanceled means the user dismissed the prompt (or it timed out,
	// which is treated identically). Callers must not retry.
	ErrCanceled = errors.New("localauth: prompt canceled")

	// ErrMismatch is a factual verification failure (wrong fingerprint,
	// wrong passcode). The gate retries these without dismissing the
	// prompt; it surfaces only after the attempt budget is spent.
	ErrMismatch = errors.New("localauth: authentication failed")

	// ErrGrantUsed means a grant was presented a second time.
	ErrGrantUsed = errors.New("localauth: grant already used")
)

// Prompter shows the platform verification UI and blocks until the user
// completes or dismisses it. Implementations return nil on success,
// ErrCanceled on dismissal, and ErrMismatch on a failed attempt.
type Prompter interface {
	Prompt(ctx context.Context, kind Kind, reason string) error
}

// maxAttempts bounds mismatch retries within a single Authenticate call.
// A bad fingerprint read keeps the prompt open rather than aborting the
// ceremony.
const maxAttempts = 3

// Gate mediates between ceremonies and the platform prompt.
type Gate struct {
	kind     Kind
	device   Device
	prompter Prompter
	log      *slog.Logger
}

// NewGate builds a gate for the given verification kind. The logger may be
// nil.
func NewGate(kind Kind, device Device, prompter Prompter, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gate{kind: kind, device: device, prompter: prompter, log: log}
}

// Kind returns the verification kind this gate prompts for.
func (g *Gate) Kind() Kind {
	return g.kind
}

// Authenticate suspends the calling ceremony until the user completes the
// prompt. The policy pre-check fails without showing a prompt when the
// device cannot satisfy the gate's kind. The returned grant is valid for
// exactly one key store call.
func (g *Gate) Authenticate(ctx context.Context, reason string) (*Grant, error) {
	if err := g.precheck(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := g.prompter.Prompt(ctx, g.kind, reason)
		if err == nil {
			g.log.Debug("user verification succeeded", "kind", g.kind.String(), "attempt", attempt)
			return newGrant(g.kind), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("prompt interrupted: %w", ErrCanceled)
		}
		if errors.Is(err, ErrCanceled) {
			g.log.Debug("user dismissed prompt", "kind", g.kind.String())
			return nil, err
		}
		if errors.Is(err, ErrMismatch) {
			g.log.Debug("verification attempt failed", "attempt", attempt)
			continue
		}
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return nil, fmt.Errorf("attempts exhausted: %w", ErrMismatch)
}

func (g *Gate) precheck() error {
	switch g.kind {
	case KindBiometric:
		if !g.device.BiometryEnrolled {
			return ErrUnavailable
		}
	case KindDeviceCredential:
		if !g.device.PasscodeSet {
			return ErrUnavailable
		}
	default:
		return fmt.Errorf("unknown verification kind %v: %w", g.kind, ErrUnavailable)
	}
	return nil
}

// Grant is proof of a completed prompt. It is single-use: the key store
// consumes it with Use and a second Use fails.
type Grant struct {
	kind Kind
	used atomic.Bool
}

func newGrant(kind Kind) *Grant {
	return &Grant{kind: kind}
}

// Kind reports which verification class produced this grant.
func (g *Grant) Kind() Kind {
	return g.kind
}

// Use consumes the grant. It returns ErrGrantUsed if the grant has already
// authorized a call.
func (g *Grant) Use() error {
	if g == nil {
		return ErrGrantUsed
	}
	if !g.used.CompareAndSwap(false, true) {
		return ErrGrantUsed
	}
	return nil
}
