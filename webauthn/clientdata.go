package webauthn

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

const (
	clientDataTypeCreate = "webauthn.create"
	clientDataTypeGet    = "webauthn.get"
)

// clientData is the collected client data the relying party verifies
// against its issued challenge.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// buildClientDataJSON serializes the collected client data. The
// challenge is re-encoded base64url without padding regardless of how
// the relying party encoded it in the options.
func buildClientDataJSON(ceremonyType string, challenge []byte, origin string) ([]byte, error) {
	return json.Marshal(clientData{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
}

// clientDataHash is the SHA-256 digest signed alongside the
// authenticator data.
func clientDataHash(clientDataJSON []byte) [32]byte {
	return sha256.Sum256(clientDataJSON)
}
