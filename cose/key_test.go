package cose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoint(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	raw := make([]byte, 65)
	raw[0] = 0x04
	key.PublicKey.X.FillBytes(raw[1:33])
	key.PublicKey.Y.FillBytes(raw[33:65])
	return raw
}

func TestEncodeKeyRoundTrip(t *testing.T) {
	raw := randomPoint(t)

	encoded, err := EncodeKey(raw, AlgES256)
	require.NoError(t, err)

	decoded, alg, err := DecodeKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
	assert.Equal(t, AlgES256, alg)
}

func TestEncodeKeyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"short", make([]byte, 64)},
		{"long", make([]byte, 66)},
		{"compressed prefix", append([]byte{0x02}, make([]byte, 64)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeKey(tt.raw, AlgES256)
			assert.Error(t, err)
		})
	}
}

func TestDecodeKeyRejectsGarbage(t *testing.T) {
	_, _, err := DecodeKey([]byte{0xff, 0x00, 0x01})
	assert.Error(t, err)
}
