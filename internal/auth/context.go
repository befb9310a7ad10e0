package auth

import (
	"context"

	"github.com/Totarae/LearningLog/internal/model"
)

// A private key for context that only this package can access.
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithUser кладёт текущего пользователя в контекст запроса.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// ForContext finds the user from the context. Nil for anonymous requests.
func ForContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userCtxKey).(*model.User)
	return u
}
