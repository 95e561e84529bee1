package store

import "context"

type ownerKey struct{}

// WithOwner records the signed-in owner on ctx. Update and Delete take only an
// id, so decorators that need the owner read it from here.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner set by WithOwner, or "".
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
