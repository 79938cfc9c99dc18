// Package scanctl is the scan page controller: image staging from a file or
// camera, a single in-flight submission, and the input/loading/result view
// machine.
package scanctl

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/jpeg"
	"regexp"
	"strings"
	"sync"
	"time"

	"nutriscan/internal/apiclient"
	"nutriscan/internal/ui/banner"
)

const (
	MaxFileSize = 5 * 1024 * 1024

	CaptureFileName = "camera-capture.jpg"
	CaptureQuality  = 80
)

type State string

const (
	StateInput   State = "input"
	StateLoading State = "loading"
	StateResult  State = "result"
)

var (
	ErrNotImage       = errors.New("please select an image file")
	ErrFileTooLarge   = errors.New("file size must be less than 5MB")
	ErrInvalidBarcode = errors.New("barcode must be 8 to 13 digits")
	ErrNothingStaged  = errors.New("select or capture an image first")
	ErrBusy           = errors.New("a scan is already in progress")
	ErrNoCamera       = errors.New("camera is not open")
	ErrStale          = errors.New("response discarded: a newer action superseded it")
)

var barcodePattern = regexp.MustCompile(`^\d{8,13}$`)

// ValidateBarcode reports whether s is an 8 to 13 digit barcode.
func ValidateBarcode(s string) bool {
	return barcodePattern.MatchString(s)
}

// File is an image picked by the user or produced by a capture.
type File struct {
	Name string
	Type string
	Data []byte
}

// ScanClient is the subset of the API the controller calls.
type ScanClient interface {
	Scan(ctx context.Context, in apiclient.ScanRequest) (*apiclient.ScanResponse, error)
	ClearSession(ctx context.Context) (*apiclient.ClearResponse, error)
}

type result struct {
	image   string
	message string
	success bool
	barcode *string
	count   int
}

type Controller struct {
	mu sync.Mutex

	client  ScanClient
	camera  Camera
	banners *banner.Board

	state   State
	staged  *File
	preview string
	manual  string
	res     *result
	handle  cameraHandle

	// gen increments on every submit and reset; a response is applied only
	// if gen has not moved while it was in flight.
	gen uint64
	// camGen increments on every camera release.
	camGen uint64
}

type Option func(*Controller)

func WithCamera(cam Camera) Option {
	return func(c *Controller) { c.camera = cam }
}

// WithClock drives banner expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.banners = banner.New(now) }
}

func New(client ScanClient, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		state:   StateInput,
		banners: banner.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectFile stages an image. A rejected file leaves the previous staging
// untouched.
func (c *Controller) SelectFile(f File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(f)
}

func (c *Controller) selectLocked(f File) error {
	if !strings.HasPrefix(f.Type, "image/") {
		c.banners.Show(banner.Error, ErrNotImage.Error())
		return ErrNotImage
	}
	if len(f.Data) > MaxFileSize {
		c.banners.Show(banner.Error, ErrFileTooLarge.Error())
		return ErrFileTooLarge
	}

	staged := f
	c.staged = &staged
	c.preview = "data:" + f.Type + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
	return nil
}

// OpenCamera asks for the rear camera. Denial leaves state as it was. The
// lock is not held while the permission prompt is pending; a release in the
// meantime stops the stream the prompt returns.
func (c *Controller) OpenCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.camera == nil {
		c.banners.Show(banner.Error, "No camera available on this device")
		c.mu.Unlock()
		return ErrCameraDenied
	}
	if c.handle.active() {
		c.mu.Unlock()
		return nil
	}
	camera, camGen := c.camera, c.camGen
	c.mu.Unlock()

	stream, err := camera.Open(ctx, FacingEnvironment)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.banners.Show(banner.Error, "Unable to access camera. Please check permissions.")
		return fmt.Errorf("open camera: %w", err)
	}
	if c.handle.active() || camGen != c.camGen {
		stream.Stop()
		return nil
	}
	c.handle.stream = stream
	return nil
}

// ToggleCamera opens the camera when closed and releases it when open.
func (c *Controller) ToggleCamera(ctx context.Context) error {
	c.mu.Lock()
	open := c.handle.active()
	c.mu.Unlock()

	if open {
		c.CancelCamera()
		return nil
	}
	return c.OpenCamera(ctx)
}

// Capture grabs the current frame as a JPEG file and stages it. The stream
// is released whether or not the capture succeeds.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.handle.active() {
		return ErrNoCamera
	}
	defer c.releaseCameraLocked()

	frame, err := c.handle.stream.Frame(ctx)
	if err != nil {
		c.banners.Show(banner.Error, "Failed to capture image")
		return fmt.Errorf("capture frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: CaptureQuality}); err != nil {
		c.banners.Show(banner.Error, "Failed to capture image")
		return fmt.Errorf("encode capture: %w", err)
	}

	return c.selectLocked(File{Name: CaptureFileName, Type: "image/jpeg", Data: buf.Bytes()})
}

func (c *Controller) CancelCamera() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseCameraLocked()
}

func (c *Controller) releaseCameraLocked() {
	c.handle.release()
	c.camGen++
}

// SetManualBarcode stores the manual field text. Non-empty text that is not
// a valid barcode raises an auto-dismissing error.
func (c *Controller) SetManualBarcode(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s = strings.TrimSpace(s)
	c.manual = s
	if s != "" && !ValidateBarcode(s) {
		c.banners.Show(banner.Error, "Please enter a valid barcode (8-13 digits)")
		return ErrInvalidBarcode
	}
	return nil
}

// Submit sends the staged image. It is refused unless an image is staged
// and the view is in the input state.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInput {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.staged == nil {
		c.mu.Unlock()
		c.banners.Show(banner.Error, ErrNothingStaged.Error())
		return ErrNothingStaged
	}

	c.gen++
	gen := c.gen
	req := apiclient.ScanRequest{
		FileName:    c.staged.Name,
		ContentType: c.staged.Type,
		Data:        c.staged.Data,
	}
	if ValidateBarcode(c.manual) {
		req.ManualBarcode = c.manual
	}
	c.state = StateLoading
	c.releaseCameraLocked()
	c.mu.Unlock()

	resp, err := c.client.Scan(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}

	if err != nil {
		c.state = StateInput
		c.banners.Show(banner.Error, scanErrorText(err))
		return fmt.Errorf("scan: %w", err)
	}

	c.res = &result{
		image:   resp.ImageWithBoxes,
		message: resp.Message,
		success: resp.Success,
		barcode: resp.BarcodeData,
		count:   resp.DetectionCount,
	}
	if resp.BarcodeData != nil && *resp.BarcodeData != "" {
		c.manual = *resp.BarcodeData
	}
	c.state = StateResult
	return nil
}

// ClearSession purges the server-side scan session, then local state. On
// failure nothing local changes.
func (c *Controller) ClearSession(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	resp, err := c.client.ClearSession(ctx)
	if err != nil {
		c.banners.Show(banner.Error, "Failed to clear session")
		return fmt.Errorf("clear session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.resetLocked(true)
	msg := resp.Message
	if msg == "" {
		msg = "Session cleared successfully"
	}
	c.banners.Show(banner.Success, msg)
	return nil
}

// ScanAnother returns to input with nothing staged.
func (c *Controller) ScanAnother() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(true)
}

// TryManual returns to input keeping the staged image and the barcode field
// so the user can correct the number and resubmit.
func (c *Controller) TryManual() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(false)
}

func (c *Controller) resetLocked(full bool) {
	c.releaseCameraLocked()
	c.gen++
	c.state = StateInput
	c.res = nil
	if full {
		c.staged = nil
		c.preview = ""
		c.manual = ""
	}
}

// Close releases the camera. The controller stays usable.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseCameraLocked()
}

type ResultView struct {
	ImageDataURL   string
	Message        string
	MessageStyle   string // "success" or "warning"
	ShowBarcode    bool
	Barcode        string
	DetectionCount int
}

// View is the render snapshot of the scan page.
type View struct {
	State         State
	FileName      string
	PreviewURL    string
	CanSubmit     bool
	CameraActive  bool
	ManualBarcode string
	Result        *ResultView
	Banners       []banner.Banner
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:         c.state,
		PreviewURL:    c.preview,
		CanSubmit:     c.staged != nil && c.state == StateInput,
		CameraActive:  c.handle.active(),
		ManualBarcode: c.manual,
		Banners:       c.banners.Active(),
	}
	if c.staged != nil {
		v.FileName = c.staged.Name
	}
	if c.res != nil && c.state == StateResult {
		r := &ResultView{
			Message:        c.res.message,
			MessageStyle:   "warning",
			DetectionCount: c.res.count,
		}
		if c.res.image != "" {
			r.ImageDataURL = "data:image/jpeg;base64," + c.res.image
		}
		if c.res.success {
			r.MessageStyle = "success"
		}
		if c.res.barcode != nil && *c.res.barcode != "" {
			r.ShowBarcode = true
			r.Barcode = *c.res.barcode
		}
		v.Result = r
	}
	return v
}

// AnnotatedImage returns the decoded result image bytes, if any.
func (c *Controller) AnnotatedImage() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil || c.res.image == "" {
		return nil, errors.New("no annotated image")
	}
	return base64.StdEncoding.DecodeString(c.res.image)
}

func scanErrorText(err error) string {
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "Error processing image. Please try again."
}
