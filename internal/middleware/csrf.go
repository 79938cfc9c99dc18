package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"
)

// CSRF implements the double-submit pattern: the token lives in a cookie and
// must be echoed in the X-CSRFToken header or the csrfmiddlewaretoken form
// field on every mutating request.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookieName)
		if err != nil || token == "" {
			token = strings.ReplaceAll(uuid.NewString(), "-", "")
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(web.CSRFContextKey, token)

		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sent := c.GetHeader(CSRFHeaderName)
		if sent == "" {
			sent = c.PostForm(web.CSRFFieldName)
		}
		if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "CSRF verification failed",
			})
			return
		}
		c.Next()
	}
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
