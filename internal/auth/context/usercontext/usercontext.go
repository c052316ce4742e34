package usercontext

import (
	"context"

	"github.com/arashthr/markcentral/internal/auth"
)

type key string

const userKey key = "userKey"

func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func User(ctx context.Context) *auth.User {
	val := ctx.Value(userKey)
	user, ok := val.(*auth.User)
	if !ok {
		// Most likely user context was not set
		return nil
	}
	return user
}
