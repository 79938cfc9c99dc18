package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutriscan/internal/analysis"
	"nutriscan/internal/auth"
	"nutriscan/internal/barcode"
	"nutriscan/internal/config"
	"nutriscan/internal/db"
	"nutriscan/internal/knowledge"
	"nutriscan/internal/llm"
	"nutriscan/internal/nutrition"
	"nutriscan/internal/product"
	"nutriscan/internal/profile"
	"nutriscan/internal/router"
	"nutriscan/internal/session"
	"nutriscan/internal/storage"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("NUTRISCAN_CONFIG"); p != "" {
		return p
	}
	return "nutriscan.yml"
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

func run() error {
	// ───────────────────────── CONFIG ─────────────────────────
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── DB ─────────────────────────
	pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ───────────────────────── STORAGE ─────────────────────────
	var archive storage.Archive = storage.Disabled{}
	if cfg.StorageEnabled() {
		r2, err := storage.NewR2Client(ctx, storage.R2Settings{
			Endpoint:      cfg.R2Endpoint,
			AccessKey:     cfg.R2AccessKey,
			SecretKey:     cfg.R2SecretKey,
			Bucket:        cfg.R2BucketName,
			PublicBaseURL: cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("r2 init failed: %w", err)
		}
		archive = storage.NewImageArchive(r2)
		slog.Info("scan image archive enabled", "bucket", cfg.R2BucketName)
	} else {
		slog.Info("scan image archive disabled")
	}

	// ───────────────────────── LLM ─────────────────────────
	model := cfg.LLMModel
	if cfg.LLMProvider == "gemini" {
		model = cfg.GeminiModel
	}
	llmClient, err := llm.New(cfg.LLMProvider, model, cfg.LLMBaseURL, cfg.LLMAPIKey())
	if err != nil {
		return fmt.Errorf("llm init failed: %w", err)
	}
	slog.Info("llm client ready", "provider", llmClient.Name(), "model", model)

	// ───────────────────────── REPOS + SERVICES ─────────────────────────
	secret := []byte(cfg.JWTSecret)
	userRepo := auth.NewPostgresUserRepository(pool)
	authService := auth.NewService(userRepo)

	analysisService := analysis.NewService(analysis.Deps{
		Decoder:  barcode.NewScanner(),
		Products: product.NewClient(cfg.OpenFoodFactsURL),
		Assessor: nutrition.NewAnalyzer(llmClient, knowledge.NewSource(cfg.DietPDFPath)),
		Users:    authService,
		Sessions: session.NewPostgresStore(pool),
		Repo:     analysis.NewPostgresRepository(pool),
		Archive:  archive,
	})
	profileService := profile.NewService(userRepo, profile.NewPostgresHistoryRepository(pool))

	// ───────────────────────── HANDLERS ─────────────────────────
	pages, err := web.NewRenderer()
	if err != nil {
		return err
	}

	r := router.NewRouter(router.Deps{
		Secret:         secret,
		AllowedOrigins: cfg.AllowedOrigins(),
		Auth:           auth.NewHandler(authService, secret, pages, cfg.IsProduction()),
		Profile:        profile.NewHandler(profileService, authService, pages),
		Analysis:       analysis.NewHandler(analysisService, pages),
	})

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api running", "addr", srv.Addr, "env", cfg.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
