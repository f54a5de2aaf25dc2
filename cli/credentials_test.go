package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platkey/platkey/credstore"
	"github.com/platkey/platkey/keystore"
	"github.com/platkey/platkey/localauth"
	"github.com/platkey/platkey/webauthn"
)

type okPrompter struct{}

func (okPrompter) Prompt(ctx context.Context, kind localauth.Kind, reason string) error {
	return nil
}

func grantFor(t *testing.T) *localauth.Grant {
	t.Helper()
	gate := localauth.NewGate(localauth.KindBiometric,
		localauth.Device{BiometryEnrolled: true}, okPrompter{}, nil)
	grant, err := gate.Authenticate(context.Background(), "test")
	require.NoError(t, err)
	return grant
}

func TestPurgeSparesForeignAAGUID(t *testing.T) {
	ctx := context.Background()
	creds := credstore.NewMemory()
	keys, err := keystore.NewSoftware(keystore.SoftwareConfig{})
	require.NoError(t, err)

	mine := &credstore.CredentialSource{
		ID:       []byte{0x01, 0x02, 0x03, 0x04},
		Type:     credstore.TypePublicKey,
		RPID:     "example.com",
		AAGUID:   webauthn.AAGUID(),
		KeyLabel: "mine",
	}
	foreign := &credstore.CredentialSource{
		ID:       []byte{0x05, 0x06, 0x07, 0x08},
		Type:     credstore.TypePublicKey,
		RPID:     "example.com",
		AAGUID:   []byte{0xde, 0xad},
		KeyLabel: "foreign",
	}
	for _, src := range []*credstore.CredentialSource{mine, foreign} {
		require.NoError(t, creds.Store(ctx, src))
		_, err := keys.GenerateKeyPair(ctx, src.KeyLabel, keystore.PolicyUserPresence, grantFor(t))
		require.NoError(t, err)
	}

	n, err := purgeByAAGUID(ctx, creds, keys, webauthn.AAGUID())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only this authenticator's credentials count")

	// Our credential and key are gone.
	_, err = creds.Load(ctx, mine.ID)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	_, err = keys.PublicKey("mine")
	assert.Error(t, err)

	// The foreign row keeps its metadata and a working key.
	got, err := creds.Load(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "foreign", got.KeyLabel)
	_, err = keys.PublicKey("foreign")
	assert.NoError(t, err)
}
