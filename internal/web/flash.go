package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie     = "nutriscan_messages"
	flashContextKey = "pendingFlashes"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Flash struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// AddFlash queues a message for the current response. It reaches the
// browser either through Redirect or the next HTML render.
func AddFlash(c *gin.Context, level Level, text string) {
	c.Set(flashContextKey, append(pending(c), Flash{Level: level, Text: text}))
}

// Redirect persists queued flashes in a cookie and issues a 302.
func Redirect(c *gin.Context, location string) {
	if msgs := pending(c); len(msgs) > 0 {
		raw, err := json.Marshal(msgs)
		if err == nil {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     flashCookie,
				Value:    base64.RawURLEncoding.EncodeToString(raw),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	c.Redirect(http.StatusFound, location)
}

// PopFlashes returns incoming cookie flashes followed by pending ones and
// expires the cookie.
func PopFlashes(c *gin.Context) []Flash {
	var out []Flash
	if v, err := c.Cookie(flashCookie); err == nil && v != "" {
		if raw, err := base64.RawURLEncoding.DecodeString(v); err == nil {
			_ = json.Unmarshal(raw, &out)
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:   flashCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	out = append(out, pending(c)...)
	c.Set(flashContextKey, []Flash(nil))
	return out
}

func pending(c *gin.Context) []Flash {
	v, ok := c.Get(flashContextKey)
	if !ok {
		return nil
	}
	msgs, _ := v.([]Flash)
	return msgs
}
