package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// principalKey is the echo context key holding the authenticated subject.
const principalKey = "user_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the identity provider and stores its subject claim as the
// principal. Protected handlers read it back with PrincipalID. Tokens must be
// HS256 signed with secret; anything else is rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// Only HS256 is accepted.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return unauthenticated(c, "invalid token")
			}

			sub, err := tok.Claims.GetSubject()
			if err != nil || strings.TrimSpace(sub) == "" {
				return unauthenticated(c, "token has no subject")
			}

			c.Set(principalKey, sub)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "UNAUTHENTICATED"})
}
