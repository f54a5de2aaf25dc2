package webauthn

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"time"

	"github.com/platkey/platkey/credstore"
	"github.com/platkey/platkey/keystore"
	"github.com/platkey/platkey/localauth"
	"github.com/platkey/platkey/logging"
)

// aaguidName seeds the authenticator model identifier. The AAGUID is
// constant per implementation version.
const aaguidName = "platkey-v1"

// AAGUID returns the 16-byte authenticator model identifier.
func AAGUID() []byte {
	sum := sha256.Sum256([]byte(aaguidName))
	return sum[:16]
}

// Authenticator runs attestation and assertion ceremonies against an
// injected key store, metadata store, and local authentication gate.
type Authenticator struct {
	keys     keystore.KeyStore
	creds    credstore.Store
	gate     *localauth.Gate
	selector CredentialSelector
	log      *slog.Logger
}

// Config assembles an Authenticator. Keys, Credentials, and Gate are
// required; Selector defaults to FirstMatch and Logger to discard.
type Config struct {
	Keys        keystore.KeyStore
	Credentials credstore.Store
	Gate        *localauth.Gate
	Selector    CredentialSelector
	Logger      *slog.Logger
}

func New(cfg Config) *Authenticator {
	selector := cfg.Selector
	if selector == nil {
		selector = FirstMatch()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Authenticator{
		keys:     cfg.Keys,
		creds:    cfg.Credentials,
		gate:     cfg.Gate,
		selector: selector,
		log:      log,
	}
}

// authorize runs the gate prompt, bounded by the relying party's timeout
// (milliseconds) when one was given. A timeout surfaces as cancellation.
func (a *Authenticator) authorize(ctx context.Context, timeoutMS int64, reason string) (*localauth.Grant, error) {
	if timeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
		defer cancel()
	}
	return a.gate.Authenticate(ctx, reason)
}
