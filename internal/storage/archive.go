// Package storage archives scanned images in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
)

// Uploader is satisfied by *R2Client.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Archive keeps a copy of every scanned image. ImageURL is empty when
// archiving is disabled or fails.
type Archive interface {
	SaveScan(ctx context.Context, userID string, data []byte) string
}

type ImageArchive struct {
	up  Uploader
	now func() time.Time
}

func NewImageArchive(up Uploader) *ImageArchive {
	return &ImageArchive{up: up, now: time.Now}
}

// ScanKey builds scans/<user>/<yyyy/mm/dd>/<uuid><ext>.
func ScanKey(userID string, at time.Time, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	}
	return path.Join("scans", userID, at.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

func (a *ImageArchive) SaveScan(ctx context.Context, userID string, data []byte) string {
	contentType := http.DetectContentType(data)
	key := ScanKey(userID, a.now(), contentType)

	url, err := a.up.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		slog.Warn("scan image archive failed", "user_id", userID, "key", key, "error", err)
		return ""
	}
	slog.Debug("scan image archived", "user_id", userID, "url", url)
	return url
}

// Disabled archives nothing.
type Disabled struct{}

func (Disabled) SaveScan(context.Context, string, []byte) string { return "" }
