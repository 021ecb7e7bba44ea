package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin  = "ADMIN"
	RoleSeller = "SELLER"
)

// Claims identify the seller behind an authenticated request.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

// IsOwner reports whether the request was made by the user owning a
// resource.
func IsOwner(ctx context.Context, userID string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == userID
}
