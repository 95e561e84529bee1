package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleProvider runs the OAuth2 authorization-code flow against Google and
// reads the profile from the userinfo endpoint. The credential passed to
// SignIn is the authorization code from the callback.
type GoogleProvider struct {
	notifier
	config *oauth2.Config
	// userinfoOpts are extra options for the userinfo client (tests point it
	// at a local server).
	userinfoOpts []option.ClientOption
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("missing Google OAuth client id or secret")
	}
	return &GoogleProvider{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", goauth2.UserinfoEmailScope, goauth2.UserinfoProfileScope},
	}}, nil
}

// AuthCodeURL is where the browser is sent to start signing in. state must be
// echoed back on the callback.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) SignIn(ctx context.Context, code string) (Identity, error) {
	if code == "" {
		return Identity{}, fmt.Errorf("sign in: %w", ErrInvalidCredential)
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w: %v", ErrInvalidCredential, err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, tok))}, p.userinfoOpts...)
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("read userinfo: %w", err)
	}
	if info.Id == "" {
		return Identity{}, fmt.Errorf("userinfo without id: %w", ErrInvalidCredential)
	}

	ident := Identity{
		OwnerID:     info.Id,
		DisplayName: info.Name,
		Email:       info.Email,
		AvatarURL:   info.Picture,
	}
	if ident.DisplayName == "" {
		ident.DisplayName = ident.Email
	}
	slog.InfoContext(ctx, "User signed in", "owner", ident.OwnerID, "provider", "google")
	p.set(ident.OwnerID, &ident)
	return ident, nil
}

func (p *GoogleProvider) SignOut(ctx context.Context, ownerID string) error {
	slog.InfoContext(ctx, "User signed out", "owner", ownerID, "provider", "google")
	p.set(ownerID, nil)
	return nil
}
