package scanctl

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
)

// FacingEnvironment requests the rear camera.
const FacingEnvironment = "environment"

var ErrCameraDenied = errors.New("camera access denied")

// Camera grants video streams.
type Camera interface {
	Open(ctx context.Context, facingMode string) (Stream, error)
}

// Stream is a live video stream. Stop ends every track and must be safe to
// call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// cameraHandle is the controller's single owning reference to an open
// stream.
type cameraHandle struct {
	stream Stream
}

func (h *cameraHandle) active() bool { return h.stream != nil }

// release stops the stream once; later calls are no-ops.
func (h *cameraHandle) release() {
	if h.stream == nil {
		return
	}
	h.stream.Stop()
	h.stream = nil
}

// FileCamera serves a still image from disk as its only frame. The command
// line client uses it to exercise the capture path.
type FileCamera struct {
	Path string
}

func (c FileCamera) Open(ctx context.Context, facingMode string) (Stream, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraDenied, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", c.Path, err)
	}
	return &stillStream{img: img, live: true}, nil
}

type stillStream struct {
	mu   sync.Mutex
	img  image.Image
	live bool
}

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		return nil, errors.New("stream stopped")
	}
	return s.img, ctx.Err()
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	s.live = false
	s.mu.Unlock()
}
