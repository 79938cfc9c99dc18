package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *in.Key
	f.contentType = *in.ContentType
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestR2Upload(t *testing.T) {
	p := &fakePutter{}
	c := &R2Client{client: p, bucket: "scans", baseURL: "https://cdn.example.com"}

	url, err := c.Upload(context.Background(), "a/b.jpg", bytes.NewReader([]byte("img")), "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example.com/a/b.jpg" {
		t.Errorf("url = %q", url)
	}
	if p.key != "a/b.jpg" || p.contentType != "image/jpeg" || string(p.body) != "img" {
		t.Errorf("unexpected put: %+v", p)
	}
}

func TestR2UploadError(t *testing.T) {
	c := &R2Client{client: &fakePutter{err: errors.New("boom")}, bucket: "scans"}
	if _, err := c.Upload(context.Background(), "k", strings.NewReader(""), "image/png"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewR2ClientRequiresEndpoint(t *testing.T) {
	if _, err := NewR2Client(context.Background(), R2Settings{Bucket: "b"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

type recordingUploader struct {
	key, contentType string
	err              error
}

func (r *recordingUploader) Upload(_ context.Context, key string, _ io.Reader, contentType string) (string, error) {
	r.key, r.contentType = key, contentType
	if r.err != nil {
		return "", r.err
	}
	return "https://cdn/" + key, nil
}

func TestImageArchiveSaveScan(t *testing.T) {
	up := &recordingUploader{}
	a := NewImageArchive(up)
	a.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	png := []byte("\x89PNG\r\n\x1a\n0000")
	url := a.SaveScan(context.Background(), "u1", png)

	if !strings.HasPrefix(up.key, "scans/u1/2024/03/09/") || !strings.HasSuffix(up.key, ".png") {
		t.Errorf("key = %q", up.key)
	}
	if up.contentType != "image/png" {
		t.Errorf("content type = %q", up.contentType)
	}
	if url != "https://cdn/"+up.key {
		t.Errorf("url = %q", url)
	}
}

func TestImageArchiveFailureReturnsEmpty(t *testing.T) {
	a := NewImageArchive(&recordingUploader{err: errors.New("down")})
	if url := a.SaveScan(context.Background(), "u1", []byte("x")); url != "" {
		t.Fatalf("url = %q, want empty", url)
	}
}

func TestDisabledArchive(t *testing.T) {
	if url := (Disabled{}).SaveScan(context.Background(), "u", []byte("x")); url != "" {
		t.Fatalf("url = %q", url)
	}
}
