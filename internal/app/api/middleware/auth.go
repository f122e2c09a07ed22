package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/response"
)

// SessionKey holds the identity.Session in gin.Context.
const SessionKey = "session"

// TokenQueryParam carries the session token for clients that cannot set
// headers, such as browser EventSource streams.
const TokenQueryParam = "access_token"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Session, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query(TokenQueryParam)
}

// AuthMiddleware resolves the bearer token into a Session and places it in
// the request context. Requests without a valid administrator session are
// answered with the unauthorized or forbidden envelope.
func AuthMiddleware(auth Authenticator, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusOK, response.FromError(apperr.ErrUnauthenticated))
			return
		}
		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			logctx.FromGin(c, base).Infow("auth rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusOK, response.FromError(err))
			return
		}

		ctx := identity.WithSession(c.Request.Context(), sess)
		ctx = logctx.WithAdmin(ctx, sess.Email)
		lg := logctx.FromGin(c, base).With("admin_email", sess.Email)
		ctx = logctx.WithLogger(ctx, lg)
		c.Set(logctx.LoggerKey, lg)
		c.Set(SessionKey, sess)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
