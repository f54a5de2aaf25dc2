package localauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter returns its scripted results in order, then succeeds.
type scriptedPrompter struct {
	results []error
	calls   int
}

func (p *scriptedPrompter) Prompt(ctx context.Context, kind Kind, reason string) error {
	p.calls++
	if len(p.results) == 0 {
		return nil
	}
	err := p.results[0]
	p.results = p.results[1:]
	return err
}

// blockingPrompter waits for the context, like a prompt nobody answers.
type blockingPrompter struct{}

func (blockingPrompter) Prompt(ctx context.Context, kind Kind, reason string) error {
	<-ctx.Done()
	return ctx.Err()
}

var allEnrolled = Device{BiometryEnrolled: true, PasscodeSet: true}

func TestPreferredKind(t *testing.T) {
	tests := []struct {
		name    string
		device  Device
		want    Kind
		wantErr error
	}{
		{"biometric wins", allEnrolled, KindBiometric, nil},
		{"passcode fallback", Device{PasscodeSet: true}, KindDeviceCredential, nil},
		{"nothing usable", Device{}, 0, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PreferredKind(tt.device)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	p := &scriptedPrompter{}
	gate := NewGate(KindBiometric, allEnrolled, p, nil)

	grant, err := gate.Authenticate(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, KindBiometric, grant.Kind())
	assert.Equal(t, 1, p.calls)
}

func TestAuthenticateUnavailableShowsNoPrompt(t *testing.T) {
	p := &scriptedPrompter{}
	gate := NewGate(KindBiometric, Device{PasscodeSet: true}, p, nil)

	_, err := gate.Authenticate(context.Background(), "test")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, p.calls, "precheck failure must not prompt")
}

func TestAuthenticateCancelDoesNotRetry(t *testing.T) {
	p := &scriptedPrompter{results: []error{ErrCanceled}}
	gate := NewGate(KindBiometric, allEnrolled, p, nil)

	_, err := gate.Authenticate(context.Background(), "test")
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, 1, p.calls, "cancel must abort immediately")
}

func TestAuthenticateRetriesMismatch(t *testing.T) {
	p := &scriptedPrompter{results: []error{ErrMismatch, ErrMismatch}}
	gate := NewGate(KindBiometric, allEnrolled, p, nil)

	grant, err := gate.Authenticate(context.Background(), "test")
	require.NoError(t, err)
	assert.NotNil(t, grant)
	assert.Equal(t, 3, p.calls)
}

func TestAuthenticateMismatchBudgetExhausted(t *testing.T) {
	p := &scriptedPrompter{results: []error{ErrMismatch, ErrMismatch, ErrMismatch}}
	gate := NewGate(KindBiometric, allEnrolled, p, nil)

	_, err := gate.Authenticate(context.Background(), "test")
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, maxAttempts, p.calls)
}

func TestAuthenticateTimeoutIsCancellation(t *testing.T) {
	gate := NewGate(KindBiometric, allEnrolled, blockingPrompter{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := gate.Authenticate(ctx, "test")
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestGrantSingleUse(t *testing.T) {
	gate := NewGate(KindDeviceCredential, allEnrolled, &scriptedPrompter{}, nil)
	grant, err := gate.Authenticate(context.Background(), "test")
	require.NoError(t, err)

	require.NoError(t, grant.Use())
	assert.ErrorIs(t, grant.Use(), ErrGrantUsed)
}

func TestNilGrantIsUnusable(t *testing.T) {
	var grant *Grant
	assert.ErrorIs(t, grant.Use(), ErrGrantUsed)
}
