package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"nutriscan/internal/ui/scanctl"

	"github.com/spf13/cobra"
)

var (
	scanBarcode string
	scanFrame   string
	scanOut     string
)

var scanCmd = &cobra.Command{
	Use:   "scan [IMAGE]",
	Short: "Upload a barcode photo (or a camera frame) and print the decode result",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the server-side scan session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		ctl := scanctl.New(client)
		defer ctl.Close()

		err = ctl.ClearSession(ctx)
		printBanners(cmd, ctl.View().Banners)
		return err
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanBarcode, "barcode", "", "barcode to send with the image (8-13 digits)")
	scanCmd.Flags().StringVar(&scanFrame, "frame", "", "capture from a camera frame image instead of uploading a file")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "write the annotated JPEG to this path")
	rootCmd.AddCommand(scanCmd, clearCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (scanFrame == "") {
		return errors.New("give either an IMAGE argument or --frame")
	}
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	ctl := scanctl.New(client, scanctl.WithCamera(scanctl.FileCamera{Path: scanFrame}))
	defer ctl.Close()

	if scanFrame != "" {
		if err := ctl.OpenCamera(ctx); err != nil {
			printBanners(cmd, ctl.View().Banners)
			return err
		}
		if err := ctl.Capture(ctx); err != nil {
			printBanners(cmd, ctl.View().Banners)
			return err
		}
	} else {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		f := scanctl.File{Name: filepath.Base(args[0]), Type: http.DetectContentType(data), Data: data}
		if err := ctl.SelectFile(f); err != nil {
			printBanners(cmd, ctl.View().Banners)
			return err
		}
	}

	if scanBarcode != "" {
		if err := ctl.SetManualBarcode(scanBarcode); err != nil {
			printBanners(cmd, ctl.View().Banners)
			return err
		}
	}

	if err := ctl.Submit(ctx); err != nil {
		printBanners(cmd, ctl.View().Banners)
		return err
	}

	view := ctl.View()
	out := cmd.OutOrStdout()
	if view.Result != nil {
		fmt.Fprintf(out, "%s (%s)\n", view.Result.Message, view.Result.MessageStyle)
		if view.Result.ShowBarcode {
			fmt.Fprintf(out, "barcode: %s\n", view.Result.Barcode)
		}
		fmt.Fprintf(out, "detections: %d\n", view.Result.DetectionCount)
	}

	img, err := ctl.AnnotatedImage()
	if err != nil {
		return nil
	}
	fmt.Fprintf(out, "annotated image: %d bytes\n", len(img))
	if scanOut != "" {
		if err := os.WriteFile(scanOut, img, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", scanOut, err)
		}
		fmt.Fprintf(out, "wrote %s\n", scanOut)
	}
	return nil
}
