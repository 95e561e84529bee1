package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/session"
)

const (
	sessionCookie = "budget_session"
	stateCookie   = "budget_oauth_state"
	stateTTL      = 10 * time.Minute
)

// redirector is implemented by providers with a browser redirect flow.
type redirector interface {
	AuthCodeURL(state string) string
}

// resumer is implemented by providers that can re-admit an identity from a
// sealed session after a restart.
type resumer interface {
	Resume(ident auth.Identity)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// authed resolves the owner's session from the session cookie.
func (s *Server) authed(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := s.identityFrom(r)
		if err != nil {
			UnauthorizedError("sign in required").Write(w)
			return
		}
		sess, err := s.sessionFor(r.Context(), ident)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) identityFrom(r *http.Request) (auth.Identity, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.Identity{}, core.ErrNotAuthenticated
	}
	return s.codec.OpenIdentity(c.Value)
}

// sessionFor returns the cached session of ident's owner, creating and
// loading it on first use.
func (s *Server) sessionFor(ctx context.Context, ident auth.Identity) (*session.Session, error) {
	if rp, ok := s.provider.(resumer); ok {
		rp.Resume(ident)
	}

	created := false
	sess := s.sessions.GetOrCreate(ident.OwnerID, func() *session.Session {
		created = true
		ns := session.New(ident.OwnerID, s.store)
		ns.Watch(s.provider)
		return ns
	})

	if sess.Owner() == "" {
		// signed out since it was cached
		s.sessions.Delete(ident.OwnerID)
		return nil, core.ErrNotAuthenticated
	}
	if created {
		if err := sess.Reconcile(ctx); err != nil {
			s.sessions.Delete(ident.OwnerID)
			return nil, fmt.Errorf("load session: %w", err)
		}
		log.FromContext(ctx).InfoContext(ctx, "Session started", log.FieldOwner, ident.OwnerID)
	}
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, ident auth.Identity) error {
	value, err := s.codec.SealIdentity(ident, s.sessionTTL)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// signIn exchanges credential with the provider and starts a session.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, credential string) {
	ctx := r.Context()
	ident, err := s.provider.SignIn(ctx, credential)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			s.logger.LogError(ctx, "Sign in rejected", err, log.ComponentAuth, log.OpSignIn, nil)
			UnauthorizedError("invalid credential").Write(w)
			return
		}
		FromError(r, fmt.Errorf("sign in: %w", err)).Write(w)
		return
	}
	if err := s.setSessionCookie(w, r, ident); err != nil {
		FromError(r, err).Write(w)
		return
	}
	if _, err := s.sessionFor(ctx, ident); err != nil {
		FromError(r, err).Write(w)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Signed in", log.FieldOwner, ident.OwnerID, log.FieldComponent, log.ComponentAuth)
	NewResponse().JSON(ident).Write(w)
}

// handleLogin accepts {"credential": "..."} as JSON or form data.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		FromError(r, err).Write(w)
		return
	}
	credential := p.Get("credential")
	if credential == "" {
		UnprocessableEntityError("credential is required").Write(w)
		return
	}
	s.signIn(w, r, credential)
}

// handleLoginRedirect starts the OAuth flow for providers that have one.
func (s *Server) handleLoginRedirect(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.provider.(redirector)
	if !ok {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	state, err := s.codec.NewState(stateTTL)
	if err != nil {
		FromError(r, fmt.Errorf("create oauth state: %w", err)).Write(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/callback",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, rp.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the OAuth flow. The state must match the cookie
// set by handleLoginRedirect and still be valid.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		UnauthorizedError("sign in cancelled: " + sanitizeInput(e, true)).Write(w)
		return
	}
	state := q.Get("state")
	c, err := r.Cookie(stateCookie)
	if err != nil || state == "" || c.Value != state || s.codec.VerifyState(state) != nil {
		BadRequestError("invalid oauth state").Write(w)
		return
	}
	clearCookie(w, r, stateCookie)

	code := q.Get("code")
	if code == "" {
		BadRequestError("missing authorization code").Write(w)
		return
	}
	s.signIn(w, r, code)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, r, sessionCookie)

	ident, err := s.identityFrom(r)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	ctx := r.Context()
	if err := s.provider.SignOut(ctx, ident.OwnerID); err != nil {
		s.logger.LogError(ctx, "Sign out failed", err, log.ComponentAuth, log.OpSignOut,
			log.NewFields().WithOwner(ident.OwnerID))
	}
	s.sessions.Delete(ident.OwnerID)
	log.FromContext(ctx).InfoContext(ctx, "Signed out", log.FieldOwner, ident.OwnerID, log.FieldComponent, log.ComponentAuth)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ident, _ := s.identityFrom(r)
	st := sess.State()
	NewResponse().JSON(struct {
		auth.Identity
		TransactionCount int `json:"transaction_count"`
	}{ident, len(st.Transactions)}).Write(w)
}
