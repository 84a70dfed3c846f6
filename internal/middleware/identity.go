package middleware

import "github.com/labstack/echo/v4"

// UserID returns the subject stored by JWTAuth, or "" for anonymous
// requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok {
		return s
	}
	return ""
}

// rateSubject is the user part of a rate limit key.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
