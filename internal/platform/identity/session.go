package identity

import (
	"context"

	"github.com/fatflowers/gymdesk/pkg/types"
)

// Session is the authenticated administrator behind a request. It travels
// in the context; operations that stamp an actor read it from there.
type Session struct {
	Email string          `json:"email"`
	Role  types.AdminRole `json:"role"`
}

type sessionCtxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(Session)
	return s, ok && s.Email != ""
}
