package cose

import (
	"bytes"
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Authenticator data flag bits per WebAuthn §6.1.
const (
	FlagUserPresent        byte = 1 << 0
	FlagUserVerified       byte = 1 << 2
	FlagAttestedCredential byte = 1 << 6
	FlagExtensionData      byte = 1 << 7
)

// authDataBaseLen is rpIdHash(32) + flags(1) + signCount(4).
const authDataBaseLen = 37

// AttestedCredentialData carries the new credential during attestation:
// aaguid(16) || credIdLen(u16 BE) || credId || COSE key (CBOR).
type AttestedCredentialData struct {
	AAGUID       [16]byte
	CredentialID []byte
	// PublicKey is the CBOR-encoded COSE key, as produced by EncodeKey.
	PublicKey []byte
}

// AuthenticatorData is the structure the relying party verifies the
// signature over. AttestedCredential is present only during attestation.
type AuthenticatorData struct {
	RPIDHash  [32]byte
	Flags     byte
	SignCount uint32

	AttestedCredential *AttestedCredentialData
}

// Encode serializes the authenticator data. The attested-credential flag
// bit is forced to match whether AttestedCredential is present.
func (a *AuthenticatorData) Encode() ([]byte, error) {
	flags := a.Flags &^ FlagAttestedCredential
	size := authDataBaseLen
	if a.AttestedCredential != nil {
		flags |= FlagAttestedCredential
		if n := len(a.AttestedCredential.CredentialID); n == 0 || n > 0xffff {
			return nil, errors.Errorf("cose: credential id length %d out of range", n)
		}
		size += 16 + 2 + len(a.AttestedCredential.CredentialID) + len(a.AttestedCredential.PublicKey)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, a.RPIDHash[:]...)
	buf = append(buf, flags)
	buf = binary.BigEndian.AppendUint32(buf, a.SignCount)
	if ac := a.AttestedCredential; ac != nil {
		buf = append(buf, ac.AAGUID[:]...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(ac.CredentialID)))
		buf = append(buf, ac.CredentialID...)
		buf = append(buf, ac.PublicKey...)
	}
	return buf, nil
}

// ParseAuthenticatorData is the inverse of Encode. Extension data, when
// flagged, is left in place but not interpreted.
func ParseAuthenticatorData(data []byte) (*AuthenticatorData, error) {
	if len(data) < authDataBaseLen {
		return nil, errors.Errorf("cose: authenticator data too short (%d bytes)", len(data))
	}
	var a AuthenticatorData
	copy(a.RPIDHash[:], data[:32])
	a.Flags = data[32]
	a.SignCount = binary.BigEndian.Uint32(data[33:37])
	rest := data[37:]

	if a.Flags&FlagAttestedCredential == 0 {
		return &a, nil
	}
	if len(rest) < 16+2 {
		return nil, errors.New("cose: truncated attested credential data")
	}
	var ac AttestedCredentialData
	copy(ac.AAGUID[:], rest[:16])
	credLen := int(binary.BigEndian.Uint16(rest[16:18]))
	rest = rest[18:]
	if len(rest) < credLen {
		return nil, errors.Errorf("cose: credential id truncated (want %d bytes, have %d)", credLen, len(rest))
	}
	ac.CredentialID = append([]byte(nil), rest[:credLen]...)
	rest = rest[credLen:]

	// The COSE key has no length prefix; decode it to find its extent.
	dec := cbor.NewDecoder(bytes.NewReader(rest))
	var raw cbor.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cose: decode credential public key")
	}
	ac.PublicKey = append([]byte(nil), rest[:dec.NumBytesRead()]...)

	a.AttestedCredential = &ac
	return &a, nil
}
