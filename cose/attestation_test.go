package cose

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttestationObjectRoundTrip(t *testing.T) {
	ad := &AuthenticatorData{
		RPIDHash: sha256.Sum256([]byte("example.com")),
		Flags:    FlagUserPresent,
	}
	authData, err := ad.Encode()
	require.NoError(t, err)

	encoded, err := EncodeAttestationObject(authData)
	require.NoError(t, err)

	obj, err := DecodeAttestationObject(encoded)
	require.NoError(t, err)
	assert.Equal(t, FormatNone, obj.Format)
	assert.Empty(t, obj.Statement)
	assert.Equal(t, authData, obj.AuthData)
}

func TestEncodeAttestationObjectRejectsEmpty(t *testing.T) {
	_, err := EncodeAttestationObject(nil)
	assert.Error(t, err)
}

func TestDecodeAttestationObjectGarbage(t *testing.T) {
	_, err := DecodeAttestationObject([]byte{0x01, 0x02})
	assert.Error(t, err)
}
