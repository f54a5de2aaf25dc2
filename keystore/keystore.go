// Package keystore manages the asymmetric key pairs backing credentials.
// The private key never leaves the store: callers get signing and
// public-key-export operations only, gated by a localauth grant.
package keystore

import (
	"context"
	"errors"
	"fmt"

	"github.com/platkey/platkey/localauth"
)

// AccessPolicy fixes how a key is gated at creation time. It is immutable
// for the life of the key; changing policy means deleting and regenerating
// the key pair.
type AccessPolicy string

const (
	// PolicyBiometryCurrentSet gates the key on the currently enrolled
	// biometric set.
	PolicyBiometryCurrentSet AccessPolicy = "biometryCurrentSet"
	// PolicyUserPresence gates the key on any device credential.
	PolicyUserPresence AccessPolicy = "userPresence"
)

// PolicyFor maps a verification kind to the key access policy it implies.
func PolicyFor(kind localauth.Kind) AccessPolicy {
	if kind == localauth.KindBiometric {
		return PolicyBiometryCurrentSet
	}
	return PolicyUserPresence
}

// Handle identifies a stored key pair.
type Handle struct {
	Label  string
	Policy AccessPolicy
}

// KeyStore is the platform-neutral contract for secure key storage. All
// keys are ECDSA over P-256 with SHA-256 digests. Implementations must be
// safe for concurrent use and must serialize signing per label.
type KeyStore interface {
	// GenerateKeyPair creates a fresh P-256 key pair under label, gated by
	// policy. The grant from the local authentication gate is consumed. A
	// label that already exists under a different policy is rejected.
	GenerateKeyPair(ctx context.Context, label string, policy AccessPolicy, grant *localauth.Grant) (*Handle, error)

	// PublicKey exports the 65-byte uncompressed point 0x04||X||Y.
	PublicKey(label string) ([]byte, error)

	// Sign hashes message with SHA-256 and returns the DER-encoded ECDSA
	// signature. The grant is consumed; a missing or spent grant fails
	// with the access-failure kind.
	Sign(ctx context.Context, label string, grant *localauth.Grant, message []byte) ([]byte, error)

	// Delete removes the key pair. Deleting a label that does not exist
	// succeeds.
	Delete(label string) error

	// Close releases any resources held by the store.
	Close() error
}

// Platform status codes attached to key storage failures for diagnostics.
const (
	StatusInternal  = 1
	StatusNotFound  = 2
	StatusDuplicate = 3
	StatusIO        = 4
)

// Kind classifies a key storage failure.
type Kind int

const (
	// KindAccessFailed: the call arrived without a fresh authorization
	// grant, or the grant was already spent.
	KindAccessFailed Kind = iota + 1
	// KindInvalidItem: the label resolved to a missing or malformed entry.
	KindInvalidItem
	KindLoadFailed
	KindStoreFailed
	KindUpdateFailed
	KindDeleteFailed
)

func (k Kind) String() string {
	switch k {
	case KindAccessFailed:
		return "accessFailed"
	case KindInvalidItem:
		return "invalidItemFound"
	case KindLoadFailed:
		return "loadFailed"
	case KindStoreFailed:
		return "storeFailed"
	case KindUpdateFailed:
		return "updateFailed"
	case KindDeleteFailed:
		return "deleteFailed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a key storage failure carrying the underlying platform status.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keystore: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("keystore: %s (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Err: err}
}

// KindOf extracts the failure kind from err, or zero when err is not a key
// storage failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
