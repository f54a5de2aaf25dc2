package webauthn

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/platkey/platkey/cose"
	"github.com/platkey/platkey/credstore"
)

// GetAssertion runs the authentication ceremony: discover candidates,
// select one, authorize, advance the signature counter, sign. No prompt
// is shown when nothing can match the request.
func (a *Authenticator) GetAssertion(ctx context.Context, opts *RequestOptions) (*AssertionResult, error) {
	if len(opts.Challenge) == 0 || opts.RPID == "" {
		return nil, newError(TypeError, "validating", fmt.Errorf("challenge and rpId are required"))
	}
	origin, err := resolveOrigin(opts.Origin, opts.RPID)
	if err != nil {
		return nil, newError(TypeError, "validating", err)
	}

	candidates, err := a.creds.LoadAll(ctx, opts.RPID)
	if err != nil {
		return nil, newError(CredSrcStorageError, "discovering", err)
	}
	if len(opts.AllowCredentials) > 0 {
		candidates = filterAllowed(candidates, opts.AllowCredentials)
	}
	if len(candidates) == 0 {
		return nil, newError(KeyNotFoundError, "discovering",
			fmt.Errorf("no credential registered for %q", opts.RPID))
	}

	src, err := a.selector.Select(candidates)
	if err != nil {
		return nil, newError(NotAllowedError, "selecting", err)
	}

	reason := "Sign in to " + opts.RPID
	grant, err := a.authorize(ctx, opts.Timeout, reason)
	if err != nil {
		return nil, mapGateError("authorizing", err)
	}

	// The counter advances exactly once per successful authorization,
	// before encoding, so the transmitted value is the stored value and
	// concurrent assertions never report a duplicate.
	counter, err := a.creds.IncreaseSignatureCounter(ctx, src.ID)
	if err != nil {
		return nil, &Error{Kind: CredSrcStorageError, Step: "signing", Err: err, CredentialID: src.ID}
	}

	clientDataJSON, err := buildClientDataJSON(clientDataTypeGet, opts.Challenge, origin)
	if err != nil {
		return nil, newError(EncodingError, "encoding", err)
	}

	authData := &cose.AuthenticatorData{
		RPIDHash:  sha256.Sum256([]byte(opts.RPID)),
		Flags:     cose.FlagUserPresent | cose.FlagUserVerified,
		SignCount: counter,
	}
	authDataBytes, err := authData.Encode()
	if err != nil {
		return nil, newError(EncodingError, "encoding", err)
	}

	cdHash := clientDataHash(clientDataJSON)
	message := make([]byte, 0, len(authDataBytes)+len(cdHash))
	message = append(message, authDataBytes...)
	message = append(message, cdHash[:]...)

	sig, err := a.keys.Sign(ctx, src.KeyLabel, grant, message)
	if err != nil {
		return nil, newError(SecKeyError, "signing", err)
	}

	a.log.Info("produced assertion",
		"rpId", opts.RPID,
		"credentialId", base64.RawURLEncoding.EncodeToString(src.ID),
		"signCount", counter)

	return &AssertionResult{
		ID:    base64.RawURLEncoding.EncodeToString(src.ID),
		RawID: src.ID,
		Type:  credstore.TypePublicKey,
		Response: AssertionResponse{
			ClientDataJSON:    clientDataJSON,
			AuthenticatorData: authDataBytes,
			Signature:         sig,
			UserHandle:        src.UserHandle,
		},
	}, nil
}

func filterAllowed(candidates []*credstore.CredentialSource, allowed []CredentialDescriptor) []*credstore.CredentialSource {
	var out []*credstore.CredentialSource
	for _, src := range candidates {
		for _, desc := range allowed {
			if bytes.Equal(src.ID, desc.ID) {
				out = append(out, src)
				break
			}
		}
	}
	return out
}
