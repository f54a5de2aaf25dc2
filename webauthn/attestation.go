package webauthn

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/platkey/platkey/cose"
	"github.com/platkey/platkey/credstore"
	"github.com/platkey/platkey/keystore"
	"github.com/platkey/platkey/localauth"
)

const credentialIDLen = 32

// MakeCredential runs the registration ceremony: authorize, generate a
// key pair, encode the attestation object, persist the credential
// source. A persist failure triggers a compensating delete of the
// just-created key so no orphaned key remains.
func (a *Authenticator) MakeCredential(ctx context.Context, opts *CreationOptions) (*AttestationResult, error) {
	if len(opts.Challenge) == 0 || opts.RP.ID == "" || len(opts.User.ID) == 0 {
		return nil, newError(TypeError, "validating", fmt.Errorf("challenge, rp.id, and user.id are required"))
	}
	origin, err := resolveOrigin(opts.Origin, opts.RP.ID)
	if err != nil {
		return nil, newError(TypeError, "validating", err)
	}

	// Fail fast, before any prompt or key material exists.
	if !supportsES256(opts.PubKeyCredParams) {
		return nil, newError(NotSupportedError, "validating", fmt.Errorf("no acceptable algorithm: ES256 (-7) required"))
	}
	if sel := opts.AuthenticatorSelection; sel != nil && sel.ResidentKey == "discouraged" {
		return nil, newError(NotSupportedError, "validating", fmt.Errorf("only client-side discoverable credentials are supported"))
	}

	reason := "Register with " + rpDisplayName(opts.RP)
	grant, err := a.authorize(ctx, opts.Timeout, reason)
	if err != nil {
		return nil, mapGateError("authorizing", err)
	}

	// A credential already registered for this RP and listed in
	// excludeCredentials means the relying party holds it already.
	if err := a.checkExcludeList(ctx, opts); err != nil {
		return nil, err
	}

	keyLabel := uuid.NewString()
	policy := keystore.PolicyFor(grant.Kind())
	if _, err := a.keys.GenerateKeyPair(ctx, keyLabel, policy, grant); err != nil {
		return nil, newError(SecKeyError, "keyGenerating", err)
	}
	a.log.Debug("generated credential key pair", "keyLabel", keyLabel, "policy", policy)

	rawPub, err := a.keys.PublicKey(keyLabel)
	if err != nil {
		return nil, a.failWithKeyCleanup(SecKeyError, "keyGenerating", err, keyLabel)
	}
	cosePub, err := cose.EncodeKey(rawPub, cose.AlgES256)
	if err != nil {
		return nil, a.failWithKeyCleanup(EncodingError, "encoding", err, keyLabel)
	}

	credID := make([]byte, credentialIDLen)
	if _, err := rand.Read(credID); err != nil {
		return nil, a.failWithKeyCleanup(UtilityError, "encoding", err, keyLabel)
	}

	clientDataJSON, err := buildClientDataJSON(clientDataTypeCreate, opts.Challenge, origin)
	if err != nil {
		return nil, a.failWithKeyCleanup(EncodingError, "encoding", err, keyLabel)
	}

	authData := &cose.AuthenticatorData{
		RPIDHash:  sha256.Sum256([]byte(opts.RP.ID)),
		Flags:     cose.FlagUserPresent | cose.FlagUserVerified | cose.FlagAttestedCredential,
		SignCount: 0,
		AttestedCredential: &cose.AttestedCredentialData{
			CredentialID: credID,
			PublicKey:    cosePub,
		},
	}
	copy(authData.AttestedCredential.AAGUID[:], AAGUID())

	authDataBytes, err := authData.Encode()
	if err != nil {
		return nil, a.failWithKeyCleanup(EncodingError, "encoding", err, keyLabel)
	}
	attObj, err := cose.EncodeAttestationObject(authDataBytes)
	if err != nil {
		return nil, a.failWithKeyCleanup(EncodingError, "encoding", err, keyLabel)
	}

	src := &credstore.CredentialSource{
		ID:               credID,
		Type:             credstore.TypePublicKey,
		RPID:             opts.RP.ID,
		UserHandle:       opts.User.ID,
		UserName:         opts.User.Name,
		UserDisplayName:  opts.User.DisplayName,
		AAGUID:           AAGUID(),
		KeyLabel:         keyLabel,
		SignatureCounter: 0,
	}
	if err := a.creds.Store(ctx, src); err != nil {
		ferr := &Error{
			Kind:         CredSrcStorageError,
			Step:         "persisting",
			Err:          err,
			CredentialID: credID,
		}
		if delErr := a.keys.Delete(keyLabel); delErr != nil {
			ferr.DeleteErr = delErr
		}
		return nil, ferr
	}

	a.log.Info("registered credential",
		"rpId", opts.RP.ID,
		"credentialId", base64.RawURLEncoding.EncodeToString(credID))

	return &AttestationResult{
		ID:   base64.RawURLEncoding.EncodeToString(credID),
		Type: credstore.TypePublicKey,
		Response: AttestationResponse{
			ClientDataJSON:    clientDataJSON,
			AttestationObject: attObj,
		},
	}, nil
}

func (a *Authenticator) checkExcludeList(ctx context.Context, opts *CreationOptions) error {
	for _, desc := range opts.ExcludeCredentials {
		src, err := a.creds.Load(ctx, desc.ID)
		if errors.Is(err, credstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return &Error{Kind: CredSrcStorageError, Step: "validating", Err: err, CredentialID: desc.ID}
		}
		if src.RPID == opts.RP.ID && bytes.Equal(src.UserHandle, opts.User.ID) {
			return newError(InvalidStateError, "validating",
				fmt.Errorf("credential already registered for this relying party"))
		}
	}
	return nil
}

// failWithKeyCleanup deletes the freshly generated key before returning
// the primary error; the delete's own failure rides along, it never
// replaces the cause.
func (a *Authenticator) failWithKeyCleanup(kind ErrorKind, step string, err error, keyLabel string) *Error {
	ferr := newError(kind, step, err)
	if delErr := a.keys.Delete(keyLabel); delErr != nil {
		ferr.DeleteErr = delErr
	}
	return ferr
}

func supportsES256(params []PubKeyCredParam) bool {
	for _, p := range params {
		if p.Type == credstore.TypePublicKey && p.Alg == cose.AlgES256 {
			return true
		}
	}
	return false
}

func rpDisplayName(rp RelyingParty) string {
	if rp.Name != "" {
		return rp.Name
	}
	return rp.ID
}

func mapGateError(step string, err error) *Error {
	switch {
	case errors.Is(err, localauth.ErrUnavailable):
		return newError(ConstraintError, step, err)
	case errors.Is(err, localauth.ErrCanceled), errors.Is(err, localauth.ErrMismatch):
		return newError(NotAllowedError, step, err)
	default:
		return newError(UnknownError, step, err)
	}
}
