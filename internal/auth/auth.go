// Package auth identifies the owner of every request and announces sign-in
// and sign-out to interested parties.
package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidSession    = errors.New("invalid or expired session")
)

// Identity is a signed-in user. OwnerID scopes every stored transaction.
type Identity struct {
	OwnerID     string `json:"owner_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Provider signs users in and out.
type Provider interface {
	// SignIn exchanges a provider-specific credential for an identity.
	SignIn(ctx context.Context, credential string) (Identity, error)
	SignOut(ctx context.Context, ownerID string) error
	// OnAuthStateChange calls fn with the owner's current identity (nil when
	// signed out) right away and again after every change, until unsubscribe
	// is called.
	OnAuthStateChange(ownerID string, fn func(*Identity)) (unsubscribe func())
}

// notifier tracks who is signed in and fans changes out to subscribers.
// Providers embed it.
type notifier struct {
	mu      sync.Mutex
	current map[string]Identity
	subs    map[string]map[int]func(*Identity)
	nextID  int
}

func (n *notifier) init() {
	if n.current == nil {
		n.current = make(map[string]Identity)
		n.subs = make(map[string]map[int]func(*Identity))
	}
}

func (n *notifier) OnAuthStateChange(ownerID string, fn func(*Identity)) func() {
	n.mu.Lock()
	n.init()
	id := n.nextID
	n.nextID++
	if n.subs[ownerID] == nil {
		n.subs[ownerID] = make(map[int]func(*Identity))
	}
	n.subs[ownerID][id] = fn
	var cur *Identity
	if ident, ok := n.current[ownerID]; ok {
		cur = &ident
	}
	n.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[ownerID], id)
			if len(n.subs[ownerID]) == 0 {
				delete(n.subs, ownerID)
			}
		})
	}
}

// set records ident for ownerID (nil signs the owner out) and notifies
// subscribers outside the lock.
func (n *notifier) set(ownerID string, ident *Identity) {
	n.mu.Lock()
	n.init()
	if ident == nil {
		delete(n.current, ownerID)
	} else {
		n.current[ownerID] = *ident
	}
	fns := make([]func(*Identity), 0, len(n.subs[ownerID]))
	for _, fn := range n.subs[ownerID] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		if ident == nil {
			fn(nil)
			continue
		}
		cp := *ident
		fn(&cp)
	}
}

// SignedIn reports whether ownerID currently holds a sign-in.
func (n *notifier) SignedIn(ownerID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.current[ownerID]
	return ok
}

// Resume marks ident as signed in without a new credential exchange, for a
// sealed session that outlived the process that issued it. It is a no-op
// when the owner is already signed in.
func (n *notifier) Resume(ident Identity) {
	n.mu.Lock()
	n.init()
	_, ok := n.current[ident.OwnerID]
	n.mu.Unlock()
	if !ok {
		n.set(ident.OwnerID, &ident)
	}
}
