package webauthn

import (
	"errors"
	"fmt"

	"github.com/platkey/platkey/localauth"
)

// ErrorKind classifies a ceremony failure. The names mirror the DOM
// exception vocabulary relying parties expect, plus the internal kinds
// for key-store, codec, and metadata-store failures.
type ErrorKind int

const (
	// ConstraintError: the requested authenticator class cannot work on
	// this device (no biometric enrolled, no passcode set).
	ConstraintError ErrorKind = iota + 1

	// InvalidStateError: the relying party asked to register a
	// credential it already holds (excludeCredentials matched).
	InvalidStateError

	// NotAllowedError: the user denied or canceled the prompt, or a
	// policy check refused the operation.
	NotAllowedError

	// NotSupportedError: no acceptable signature algorithm, or an
	// unsupported option combination.
	NotSupportedError

	// TypeError: malformed request options.
	TypeError

	// EncodingError: CBOR/COSE or client-data encoding failed.
	EncodingError

	// SecKeyError: key generation or signing failed in the key store.
	SecKeyError

	// KeyNotFoundError: no stored credential matches the assertion
	// request.
	KeyNotFoundError

	// CredSrcStorageError: the credential metadata store failed.
	CredSrcStorageError

	// UtilityError: a supporting operation (randomness, hashing)
	// failed.
	UtilityError

	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case ConstraintError:
		return "ConstraintError"
	case InvalidStateError:
		return "InvalidStateError"
	case NotAllowedError:
		return "NotAllowedError"
	case NotSupportedError:
		return "NotSupportedError"
	case TypeError:
		return "TypeError"
	case EncodingError:
		return "EncodingError"
	case SecKeyError:
		return "SecKeyError"
	case KeyNotFoundError:
		return "KeyNotFoundError"
	case CredSrcStorageError:
		return "CredSrcStorageError"
	case UtilityError:
		return "UtilityError"
	default:
		return "UnknownError"
	}
}

// Error is the umbrella failure type every ceremony returns. Lower
// layers never swallow errors; each boundary wraps its native failure
// here and records the step at which it occurred.
type Error struct {
	Kind ErrorKind

	// Step names the ceremony phase that failed ("authorizing",
	// "keyGenerating", "encoding", "persisting", "signing", ...).
	Step string

	Err error

	// CredentialID is set on metadata-store failures that name a
	// specific credential.
	CredentialID []byte

	// DeleteErr records the outcome of the compensating key delete
	// attempted after a persist failure. It never masks Err.
	DeleteErr error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("webauthn: %s", e.Kind)
	if e.Step != "" {
		msg += fmt.Sprintf(" at %s", e.Step)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.DeleteErr != nil {
		msg += fmt.Sprintf(" (compensating key delete failed: %v)", e.DeleteErr)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, step string, err error) *Error {
	return &Error{Kind: kind, Step: step, Err: err}
}

// KindOf extracts the classification from any error chain. Errors that
// did not originate here report UnknownError.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// IsUserCanceled reports whether err is a user cancellation or denial,
// letting callers return to idle silently instead of surfacing a
// failure.
func IsUserCanceled(err error) bool {
	return errors.Is(err, localauth.ErrCanceled) || KindOf(err) == NotAllowedError
}
