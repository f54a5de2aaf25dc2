package localauth

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalPrompterAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"yes", "y\n", nil},
		{"yes word", "YES\n", nil},
		{"enter dismisses", "\n", ErrCanceled},
		{"no dismisses", "n\n", ErrCanceled},
		{"eof dismisses", "", ErrCanceled},
		{"anything else is a failed attempt", "maybe\n", ErrMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &TerminalPrompter{In: strings.NewReader(tt.input), Out: &out}
			err := p.Prompt(context.Background(), KindBiometric, "Sign in to example.com")
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Contains(t, out.String(), "Sign in to example.com")
		})
	}
}
