package auth

import (
	"context"
	"fmt"
	"strings"
)

// StaticProvider signs in a fixed set of identities by owner id or email.
// With no identities configured any non-empty credential becomes its own
// owner, which is what local development and tests want.
type StaticProvider struct {
	notifier
	identities []Identity
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(identities ...Identity) *StaticProvider {
	return &StaticProvider{identities: identities}
}

func (p *StaticProvider) SignIn(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, fmt.Errorf("sign in: %w", ErrInvalidCredential)
	}

	ident, ok := p.lookup(credential)
	if !ok {
		return Identity{}, fmt.Errorf("sign in %q: %w", credential, ErrInvalidCredential)
	}
	p.set(ident.OwnerID, &ident)
	return ident, nil
}

func (p *StaticProvider) lookup(credential string) (Identity, bool) {
	if len(p.identities) == 0 {
		return Identity{OwnerID: credential, DisplayName: credential}, true
	}
	for _, ident := range p.identities {
		if ident.OwnerID == credential || strings.EqualFold(ident.Email, credential) {
			return ident, true
		}
	}
	return Identity{}, false
}

func (p *StaticProvider) SignOut(_ context.Context, ownerID string) error {
	p.set(ownerID, nil)
	return nil
}
