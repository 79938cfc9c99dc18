package main

import (
	"fmt"
	"log/slog"
	"strings"

	"nutriscan/internal/prefs"
	"nutriscan/internal/ui/profileview"

	"github.com/spf13/cobra"
)

var metricUnit string

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Edit profile metrics",
}

var metricSetCmd = &cobra.Command{
	Use:   "set NAME VALUE",
	Short: "Update weight, height or age",
	Long: `Update one profile metric. Weight is read in the preferred unit
(kg unless changed with --unit, which is remembered).`,
	Args: cobra.ExactArgs(2),
	RunE: runMetricSet,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the weight history series",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	metricSetCmd.Flags().StringVar(&metricUnit, "unit", "", "weight unit to use and remember (kg|lb)")
	metricCmd.AddCommand(metricSetCmd)
	rootCmd.AddCommand(metricCmd, historyCmd)
}

func openPrefs() prefs.Store {
	path, err := prefs.DefaultPath()
	if err != nil {
		slog.Debug("preferences unavailable, using memory", "error", err)
		return prefs.NewMemory()
	}
	f, err := prefs.Open(path)
	if err != nil {
		slog.Debug("preferences unavailable, using memory", "path", path, "error", err)
		return prefs.NewMemory()
	}
	return f
}

func runMetricSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := connect(ctx)
	if err != nil {
		return err
	}

	page := profileview.New(client, openPrefs(), "", "", "")
	page.Init(ctx)
	if metricUnit != "" {
		if err := page.SetUnit(metricUnit); err != nil {
			return err
		}
	}
	if err := page.OpenEdit(profileview.Metric(strings.ToLower(args[0]))); err != nil {
		return err
	}
	page.SetDraft(args[1])

	err = page.Save(ctx)
	view := page.View()
	printBanners(cmd, view.Banners)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch profileview.Metric(strings.ToLower(args[0])) {
	case profileview.Weight:
		fmt.Fprintf(out, "weight: %s %s\n", view.Weight, view.Unit)
	case profileview.Height:
		fmt.Fprintf(out, "height: %s cm\n", view.Height)
	case profileview.Age:
		fmt.Fprintf(out, "age: %s\n", view.Age)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := connect(ctx)
	if err != nil {
		return err
	}

	page := profileview.New(client, openPrefs(), "", "", "")
	page.Init(ctx)
	if err := page.SelectTab("history"); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	view := page.View()
	if len(view.Chart) == 0 {
		fmt.Fprintln(out, "no weight history yet")
		return nil
	}
	for _, s := range view.Chart {
		fmt.Fprintln(out, s.Name)
		for i, label := range s.Labels {
			fmt.Fprintf(out, "  %s  %g\n", label, s.Values[i])
		}
	}
	return nil
}
