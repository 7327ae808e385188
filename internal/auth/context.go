package auth

import (
	"context"

	"github.com/dukerupert/bitesnap/internal/model"
)

type contextKey struct{}

// AuthContext carries the resolved session through a request. A zero Token
// means the request is anonymous; User is non-nil only once the backend
// confirmed the token.
type AuthContext struct {
	SessionID string
	Token     string
	User      *model.User
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Token returns the backend token for the request, or "" for anonymous
// requests.
func Token(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Token
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(ctx context.Context) *model.User {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.User
}

// IsAuthenticated reports whether the request has a confirmed user.
func IsAuthenticated(ctx context.Context) bool {
	return CurrentUser(ctx) != nil
}
