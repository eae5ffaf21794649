package auth

import (
	"context"
	"sort"

	"github.com/hongminglow/deepsea-be/internal/models"
)

// PermissionSet is a resolved set of permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes; duplicates collapse.
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Has reports whether code is in the set.
func (p PermissionSet) Has(code string) bool {
	_, ok := p[code]
	return ok
}

// Codes returns the codes in sorted order.
func (p PermissionSet) Codes() []string {
	out := make([]string, 0, len(p))
	for code := range p {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Actor is the authenticated user for the duration of one request.
type Actor struct {
	models.User
	Department *string
	JobTitle   *string
	// Permissions is nil until resolved.
	Permissions PermissionSet
}

// NewActor copies user without its password hash.
func NewActor(user models.User) *Actor {
	user.PasswordHash = ""
	return &Actor{User: user}
}

// Resolved reports whether the actor already carries its permission set.
func (a *Actor) Resolved() bool {
	return a != nil && a.Permissions != nil
}

type actorContextKey struct{}

type tokenContextKey struct{}

// ContextWithActor stores the actor on ctx.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor attached by the auth guard, if any.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	return actor, ok && actor != nil
}

// ContextWithToken stores the raw bearer token on ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the raw bearer token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}
