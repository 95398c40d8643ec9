package middleware

import "github.com/labstack/echo/v4"

// PrincipalID returns the subject stored by JWTAuth, or "" when the request
// is unauthenticated.
func PrincipalID(c echo.Context) string {
	if s, ok := c.Get(principalKey).(string); ok {
		return s
	}
	return ""
}

// userID is PrincipalID with a placeholder for anonymous callers, used to
// build rate limit keys.
func userID(c echo.Context) string {
	if s := PrincipalID(c); s != "" {
		return s
	}
	return "anon"
}
