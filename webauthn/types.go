// Package webauthn implements the platform authenticator side of the
// WebAuthn registration (attestation) and authentication (assertion)
// ceremonies.
package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Base64URL marshals byte fields the way they cross the relying-party
// boundary: base64url without padding. Decoding tolerates padded and
// standard-alphabet input, which relying parties emit in the wild.
type Base64URL []byte

func (b Base64URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

func (b *Base64URL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := decodeBase64(s)
	if err != nil {
		return fmt.Errorf("invalid base64url value: %w", err)
	}
	*b = decoded
	return nil
}

func (b Base64URL) String() string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// RelyingParty identifies the service a credential is scoped to.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// User carries the relying party's account fields. ID is the opaque
// user handle, never displayed.
type User struct {
	ID          Base64URL `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
}

// PubKeyCredParam names one acceptable credential type/algorithm pair.
type PubKeyCredParam struct {
	Type string `json:"type"`
	Alg  int64  `json:"alg"`
}

// AuthenticatorSelection carries the relying party's attachment and
// verification policy for registration.
type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
	ResidentKey             string `json:"residentKey,omitempty"`
	UserVerification        string `json:"userVerification,omitempty"`
}

// CredentialDescriptor references an existing credential in
// excludeCredentials / allowCredentials lists.
type CredentialDescriptor struct {
	Type       string    `json:"type"`
	ID         Base64URL `json:"id"`
	Transports []string  `json:"transports,omitempty"`
}

// CreationOptions is the attestation-options message from the relying
// party. Origin is the caller's web origin; when empty it is derived
// from the RP id.
type CreationOptions struct {
	Challenge              Base64URL               `json:"challenge"`
	RP                     RelyingParty            `json:"rp"`
	User                   User                    `json:"user"`
	PubKeyCredParams       []PubKeyCredParam       `json:"pubKeyCredParams"`
	AuthenticatorSelection *AuthenticatorSelection `json:"authenticatorSelection,omitempty"`
	ExcludeCredentials     []CredentialDescriptor  `json:"excludeCredentials,omitempty"`
	Origin                 string                  `json:"origin,omitempty"`

	// Timeout bounds the consent prompt, in milliseconds. Zero means the
	// caller's context alone limits the wait.
	Timeout int64 `json:"timeout,omitempty"`
}

// RequestOptions is the assertion-options message from the relying
// party.
type RequestOptions struct {
	Challenge        Base64URL              `json:"challenge"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials,omitempty"`
	UserVerification string                 `json:"userVerification,omitempty"`
	Origin           string                 `json:"origin,omitempty"`
	Timeout          int64                  `json:"timeout,omitempty"`
}

// AttestationResponse is the inner response of a registration result.
type AttestationResponse struct {
	ClientDataJSON    Base64URL `json:"clientDataJSON"`
	AttestationObject Base64URL `json:"attestationObject"`
}

// AttestationResult is returned to the relying party after a successful
// registration ceremony.
type AttestationResult struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

// AssertionResponse is the inner response of an authentication result.
type AssertionResponse struct {
	ClientDataJSON    Base64URL `json:"clientDataJSON"`
	AuthenticatorData Base64URL `json:"authenticatorData"`
	Signature         Base64URL `json:"signature"`
	UserHandle        Base64URL `json:"userHandle,omitempty"`
}

// AssertionResult is returned to the relying party after a successful
// authentication ceremony.
type AssertionResult struct {
	ID       string            `json:"id"`
	RawID    Base64URL         `json:"rawId"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}
