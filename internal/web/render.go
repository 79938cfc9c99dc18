package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Context keys shared between middleware and the renderer.
const (
	CSRFContextKey      = "csrfToken"
	UserIDContextKey    = "userID"
	UserEmailContextKey = "userEmail"
)

// CSRFFieldName is the hidden form field carrying the CSRF token.
const CSRFFieldName = "csrfmiddlewaretoken"

var pages = []string{"login", "signup", "profile", "scan", "result"}

// Renderer holds one template set per page, each layered on base.tmpl.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New("base.tmpl").Funcs(funcMap).ParseFS(
			templateFS,
			"templates/base.tmpl",
			"templates/"+name+".tmpl",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// HTML renders page inside the base layout. Pending and incoming flash
// messages are consumed.
func (r *Renderer) HTML(c *gin.Context, status int, page string, data gin.H) {
	t, ok := r.pages[page]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown page %q", page)
		return
	}

	if data == nil {
		data = gin.H{}
	}
	data["CSRFToken"] = c.GetString(CSRFContextKey)
	data["CSRFFieldName"] = CSRFFieldName
	data["UserEmail"] = c.GetString(UserEmailContextKey)
	data["Flashes"] = PopFlashes(c)
	data["Page"] = page

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("template exec failed", "page", page, "error", err)
		c.String(http.StatusInternalServerError, "template exec error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

var funcMap = template.FuncMap{
	"getItem": getItem,
	"join":    strings.Join,
	"f1": func(v any) string { return fixed(v, 1) },
	"f2": func(v any) string { return fixed(v, 2) },
	"safeURL": func(s string) template.URL {
		return template.URL(s)
	},
}

// fixed formats a float or *float with the given decimals; nil is empty.
func fixed(v any, decimals int) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.*f", decimals, n)
	case *float64:
		if n == nil {
			return ""
		}
		return fmt.Sprintf("%.*f", decimals, *n)
	}
	return ""
}

// getItem looks up a map entry by a variable key from templates.
func getItem(m any, key string) any {
	switch mm := m.(type) {
	case map[string]any:
		return mm[key]
	case map[string]string:
		return mm[key]
	case map[string]float64:
		return mm[key]
	}
	return nil
}
