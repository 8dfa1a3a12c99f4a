package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"
	"farmDirect/pkg/utils"

	"github.com/labstack/echo/v4"
)

const sessionContextKey = "session"

// TokenParser verifies a bearer token's signature and expiry.
type TokenParser interface {
	ParseJWT(tokenString string) (*utils.Claims, error)
}

// SessionStore resolves a token to the session stored at login.
type SessionStore interface {
	Get(ctx context.Context, token string) (domain.Session, error)
}

// AuthMiddleware accepts a request only when its bearer token is validly
// signed and its session is still present in Redis. The resolved session
// is available to handlers through CurrentSession.
func AuthMiddleware(tokens TokenParser, sessions SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return domain.Unauthorized("missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return domain.Unauthorized("invalid authorization format")
			}

			tokenString := tokenParts[1]

			claims, err := tokens.ParseJWT(tokenString)
			if err != nil {
				logger.Warn("failed to parse JWT", err)
				return domain.Unauthorized("invalid token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			session, err := sessions.Get(ctx, tokenString)
			if err != nil {
				return err
			}

			// Redis is the source of truth; the claims must still agree with it.
			if strconv.FormatUint(uint64(session.UserID), 10) != claims.UserID {
				logger.Error("user id mismatch between token and session")
				return domain.Unauthorized("invalid token")
			}

			session.Token = tokenString
			SetSession(c, session)

			return next(c)
		}
	}
}

// SetSession attaches an authenticated session to the request.
func SetSession(c echo.Context, session domain.Session) {
	c.Set(sessionContextKey, session)
}

// CurrentSession returns the session set by AuthMiddleware.
func CurrentSession(c echo.Context) (domain.Session, error) {
	session, ok := c.Get(sessionContextKey).(domain.Session)
	if !ok {
		return domain.Session{}, domain.Unauthorized("user not authenticated")
	}

	return session, nil
}

// Authorize is the role pre-check for a route. Ownership is checked again
// by the service once the resource is loaded.
func Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := CurrentSession(c)
			if err != nil {
				return err
			}

			if err := policy.Authorize(session, action, nil); err != nil {
				return err
			}

			return next(c)
		}
	}
}
