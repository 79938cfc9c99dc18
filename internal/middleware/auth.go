package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"nutriscan/internal/auth"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

// Authenticate attaches the user identity when a valid Bearer header or
// session cookie is present. It never rejects the request.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(auth.CookieName)
		}
		if token == "" {
			c.Next()
			return
		}

		userID, email, err := auth.ValidateToken(secret, token)
		if err != nil {
			slog.Debug("ignoring invalid session token", "path", c.Request.URL.Path, "error", err)
			c.Next()
			return
		}

		// Attach user info to request context
		c.Set(web.UserIDContextKey, userID)
		c.Set(web.UserEmailContextKey, email)
		c.Next()
	}
}

// AuthMiddleware rejects unauthenticated JSON requests with 401.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(web.UserIDContextKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		c.Next()
	}
}

// LoginRequired redirects anonymous page requests to the login form,
// preserving the original path in ?next=.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(web.UserIDContextKey) == "" {
			target := "/accounts/login/?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
