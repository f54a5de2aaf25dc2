package webauthn

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platkey/platkey/localauth"
)

func TestBase64URLDecodeToleratesVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"padded standard", `"Y2g="`, []byte("ch")},
		{"unpadded url", `"Y2g"`, []byte("ch")},
		{"url alphabet", `"_-8"`, []byte{0xff, 0xef}},
		{"standard alphabet", `"/+8="`, []byte{0xff, 0xef}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Base64URL
			require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
			assert.Equal(t, tt.want, []byte(b))
		})
	}
}

func TestBase64URLMarshalsWithoutPadding(t *testing.T) {
	out, err := json.Marshal(Base64URL("ch"))
	require.NoError(t, err)
	assert.Equal(t, `"Y2g"`, string(out))
}

func TestBase64URLRejectsGarbage(t *testing.T) {
	var b Base64URL
	assert.Error(t, json.Unmarshal([]byte(`"!!"`), &b))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{
		Kind:      SecKeyError,
		Step:      "signing",
		Err:       errors.New("boom"),
		DeleteErr: errors.New("also boom"),
	}
	msg := err.Error()
	assert.Contains(t, msg, "SecKeyError")
	assert.Contains(t, msg, "signing")
	assert.Contains(t, msg, "boom")
	assert.Contains(t, msg, "compensating key delete failed")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, TypeError, KindOf(newError(TypeError, "validating", errors.New("bad"))))
	assert.Equal(t, UnknownError, KindOf(errors.New("plain")))
}

func TestIsUserCanceled(t *testing.T) {
	assert.True(t, IsUserCanceled(localauth.ErrCanceled))
	assert.True(t, IsUserCanceled(newError(NotAllowedError, "authorizing", localauth.ErrCanceled)))
	assert.False(t, IsUserCanceled(newError(SecKeyError, "signing", errors.New("boom"))))
}
