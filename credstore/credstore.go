// Package credstore persists the non-secret metadata describing each
// registered credential. The durable backend is SQLite; an in-memory
// implementation backs tests.
package credstore

import (
	"context"
	"errors"
	"time"
)

// TypePublicKey is the only credential type WebAuthn defines today.
const TypePublicKey = "public-key"

// ErrNotFound is returned when no credential matches the requested id.
var ErrNotFound = errors.New("credstore: credential not found")

// CredentialSource is the durable record for one registered credential.
// The private key itself lives in the key store under KeyLabel; exactly
// one key store entry exists per label, created together with this row.
type CredentialSource struct {
	// ID is the WebAuthn credential id: 16-32 cryptographically random
	// bytes, unique per relying party.
	ID []byte

	Type string

	// RPID scopes the credential; assertions only ever consider sources
	// whose RPID matches the request.
	RPID string

	// UserHandle is the relying party's opaque account identifier. Never
	// shown to the user.
	UserHandle []byte

	UserName        string
	UserDisplayName string

	// AAGUID identifies the authenticator model that minted the
	// credential (16 bytes).
	AAGUID []byte

	// KeyLabel locates the paired key store entry.
	KeyLabel string

	// SignatureCounter is monotonically non-decreasing, 0 at creation,
	// advanced only through IncreaseSignatureCounter.
	SignatureCounter uint32

	CreatedAt time.Time
}

// Store is the metadata CRUD plus the serialized counter increment.
type Store interface {
	// Store upserts by credential id. The paired key must already exist
	// in the key store when this is called.
	Store(ctx context.Context, src *CredentialSource) error

	// Load returns the credential with the given id, or ErrNotFound.
	Load(ctx context.Context, id []byte) (*CredentialSource, error)

	// LoadAll returns credentials for rpID, filtered by the storage
	// query itself. An empty rpID returns everything.
	LoadAll(ctx context.Context, rpID string) ([]*CredentialSource, error)

	// Delete removes one credential. Missing ids return ErrNotFound.
	Delete(ctx context.Context, id []byte) error

	// DeleteAll removes every credential minted by the given aaguid, or
	// all credentials when aaguid is nil.
	DeleteAll(ctx context.Context, aaguid []byte) error

	// IncreaseSignatureCounter atomically advances the counter by one and
	// returns the new value. Concurrent calls for the same id serialize
	// at the storage layer; no increment is ever lost.
	IncreaseSignatureCounter(ctx context.Context, id []byte) (uint32, error)

	Close() error
}
