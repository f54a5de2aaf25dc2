package webauthn

import "github.com/platkey/platkey/credstore"

// CredentialSelector picks which of the matching credentials an
// assertion ceremony uses. UIs substitute a user-facing picker here;
// the default takes the first (oldest) candidate.
type CredentialSelector interface {
	Select(candidates []*credstore.CredentialSource) (*credstore.CredentialSource, error)
}

// SelectorFunc adapts a function to the CredentialSelector interface.
type SelectorFunc func(candidates []*credstore.CredentialSource) (*credstore.CredentialSource, error)

func (f SelectorFunc) Select(candidates []*credstore.CredentialSource) (*credstore.CredentialSource, error) {
	return f(candidates)
}

// FirstMatch returns the default selection strategy.
func FirstMatch() CredentialSelector {
	return SelectorFunc(func(candidates []*credstore.CredentialSource) (*credstore.CredentialSource, error) {
		return candidates[0], nil
	})
}
