package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"nutriscan/internal/ui/loginview"
	"nutriscan/internal/ui/signupcalc"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

const (
	ProfilePath = "/accounts/profile/"
	HomePath    = "/"

	msgSignedUp  = "Your account has been created successfully!"
	msgLoggedOut = "You have been successfully logged out."
	msgBadLogin  = "Please enter a correct email and password. Note that both fields may be case-sensitive."
)

type Handler struct {
	service *Service
	secret  []byte
	pages   *web.Renderer
	secure  bool
}

// NewHandler serves the account pages. secure marks the session cookie
// Secure, for deployments behind TLS.
func NewHandler(service *Service, secret []byte, pages *web.Renderer, secure bool) *Handler {
	return &Handler{service: service, secret: secret, pages: pages, secure: secure}
}

func (h *Handler) setSession(c *gin.Context, u *User) error {
	token, err := GenerateToken(h.secret, u.ID, u.Email)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// --------------------------------------------------
// Signup
// --------------------------------------------------

type signupForm struct {
	Name               string
	Email              string
	Age                string
	HeightCm           string
	WeightKg           string
	DietaryPreferences string
	HealthIssues       string
	Goals              string
}

func (h *Handler) renderSignup(c *gin.Context, status int, form signupForm, errs []string) {
	calc := signupcalc.Prefill(form.WeightKg, form.HeightCm)
	h.pages.HTML(c, status, "signup", gin.H{
		"Form":     form,
		"Errors":   errs,
		"Calc":     calc.View(),
		"Password": loginview.New().View(),
	})
}

func (h *Handler) SignupPage(c *gin.Context) {
	h.renderSignup(c, http.StatusOK, signupForm{}, nil)
}

func (h *Handler) Signup(c *gin.Context) {
	form := signupForm{
		Name:               strings.TrimSpace(c.PostForm("name")),
		Email:              strings.TrimSpace(c.PostForm("email")),
		Age:                strings.TrimSpace(c.PostForm("age")),
		HeightCm:           strings.TrimSpace(c.PostForm("height_cm")),
		WeightKg:           strings.TrimSpace(c.PostForm("weight_kg")),
		DietaryPreferences: c.PostForm("dietary_preferences"),
		HealthIssues:       c.PostForm("health_issues"),
		Goals:              c.PostForm("goals"),
	}

	in := RegisterInput{
		Name:               form.Name,
		Email:              form.Email,
		Password:           c.PostForm("password1"),
		PasswordConfirm:    c.PostForm("password2"),
		DietaryPreferences: form.DietaryPreferences,
		HealthIssues:       form.HealthIssues,
		Goals:              form.Goals,
	}

	var errs []string
	if form.Age != "" {
		age, err := strconv.Atoi(form.Age)
		if err != nil || age < 0 {
			errs = append(errs, "Age: enter a whole number.")
		} else {
			in.Age = &age
		}
	}
	if v, ok, msg := optionalFloat("Height", form.HeightCm); msg != "" {
		errs = append(errs, msg)
	} else if ok {
		in.HeightCm = &v
	}
	if v, ok, msg := optionalFloat("Weight", form.WeightKg); msg != "" {
		errs = append(errs, msg)
	} else if ok {
		in.WeightKg = &v
	}
	if len(errs) > 0 {
		h.renderSignup(c, http.StatusBadRequest, form, errs)
		return
	}

	user, err := h.service.Register(c.Request.Context(), in)
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrWeakPassword):
		h.renderSignup(c, http.StatusBadRequest, form, []string{capitalize(err.Error())})
		return
	case err != nil:
		slog.Error("signup failed", "email", form.Email, "error", err)
		h.renderSignup(c, http.StatusInternalServerError, form, []string{"Something went wrong. Please try again."})
		return
	}

	if err := h.setSession(c, user); err != nil {
		slog.Error("issuing session after signup", "user_id", user.ID, "error", err)
	}
	slog.Info("user registered", "user_id", user.ID)
	web.AddFlash(c, web.LevelSuccess, msgSignedUp)
	web.Redirect(c, ProfilePath)
}

func optionalFloat(label, s string) (float64, bool, string) {
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false, label + ": enter a number."
	}
	return v, true, ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// --------------------------------------------------
// Login / logout
// --------------------------------------------------

// safeNext only allows local absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ProfilePath
	}
	return next
}

func (h *Handler) LoginPage(c *gin.Context) {
	if c.GetString(web.UserIDContextKey) != "" {
		c.Redirect(http.StatusFound, safeNext(c.Query("next")))
		return
	}
	h.pages.HTML(c, http.StatusOK, "login", gin.H{
		"Next":     c.Query("next"),
		"Email":    "",
		"Errors":   []string(nil),
		"Password": loginview.New().View(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	if email == "" {
		email = c.PostForm("username")
	}
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}

	user, err := h.service.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		slog.Info("login rejected", "email", email)
		h.pages.HTML(c, http.StatusUnauthorized, "login", gin.H{
			"Next":     next,
			"Email":    email,
			"Errors":   []string{msgBadLogin},
			"Password": loginview.New().View(),
		})
		return
	}

	if err := h.setSession(c, user); err != nil {
		slog.Error("issuing session", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, "could not start session")
		return
	}
	c.Redirect(http.StatusFound, safeNext(next))
}

func (h *Handler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	web.AddFlash(c, web.LevelSuccess, msgLoggedOut)
	web.Redirect(c, HomePath)
}
