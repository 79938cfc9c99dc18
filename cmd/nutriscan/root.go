package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"nutriscan/internal/apiclient"
	"nutriscan/internal/ui/banner"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	email     string
	password  string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "nutriscan",
	Short: "Scan products and manage your NutriScan profile from the terminal",
	Long: `nutriscan drives a running NutriScan server through the same page
controllers the web app uses: barcode scanning, profile metric editing and
the signup BMI calculator.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("NUTRISCAN_SERVER", "http://localhost:8000"), "NutriScan server URL")
	rootCmd.PersistentFlags().StringVar(&email, "email", os.Getenv("NUTRISCAN_EMAIL"), "account email (env NUTRISCAN_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("NUTRISCAN_PASSWORD"), "account password (env NUTRISCAN_PASSWORD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// connect logs in and returns a client carrying the session cookies.
func connect(ctx context.Context) (*apiclient.Client, error) {
	if email == "" || password == "" {
		return nil, errors.New("--email and --password (or NUTRISCAN_EMAIL / NUTRISCAN_PASSWORD) are required")
	}
	client, err := apiclient.New(serverURL)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("logging in to %s: %w", serverURL, err)
	}
	return client, nil
}

func printBanners(cmd *cobra.Command, banners []banner.Banner) {
	for _, b := range banners {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", b.Kind, b.Text)
	}
}
