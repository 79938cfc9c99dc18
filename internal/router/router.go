package router

import (
	"net/http"
	"time"

	"nutriscan/internal/analysis"
	"nutriscan/internal/auth"
	"nutriscan/internal/middleware"
	"nutriscan/internal/profile"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Secret         []byte
	AllowedOrigins []string

	Auth     *auth.Handler
	Profile  *profile.Handler
	Analysis *analysis.Handler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CSRFHeaderName, "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(middleware.CSRF(), middleware.Authenticate(d.Secret))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/scan/")
	})

	// ───────────────────────── ACCOUNTS ─────────────────────────
	accounts := r.Group("/accounts")
	{
		accounts.GET("/signup/", d.Auth.SignupPage)
		accounts.POST("/signup/", d.Auth.Signup)
		accounts.GET("/login/", d.Auth.LoginPage)
		accounts.POST("/login/", d.Auth.Login)
		accounts.GET("/logout/", d.Auth.Logout)
		accounts.POST("/logout/", d.Auth.Logout)
	}

	accounts.GET("/profile/", middleware.LoginRequired(), d.Profile.Profile)

	// JSON endpoints answer 401 instead of redirecting to the login form
	metrics := accounts.Group("/profile/metrics")
	metrics.Use(middleware.AuthMiddleware())
	{
		metrics.POST("/", d.Profile.UpdateMetric)
		metrics.GET("/history/", d.Profile.MetricsHistory)
	}

	// ───────────────────────── SCAN ─────────────────────────
	scan := r.Group("")
	scan.Use(middleware.LoginRequired())
	{
		scan.GET("/scan/", d.Analysis.ScanPage)
		scan.POST("/scan/", d.Analysis.Scan)
		scan.POST("/scan/clear-session/", d.Analysis.ClearSession)
		scan.GET("/result/", d.Analysis.Result)
	}

	return r
}
