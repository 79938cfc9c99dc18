// Package barcode finds and decodes retail barcodes in a photo and returns
// an annotated copy of the image.
package barcode

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

const (
	MsgDecoded    = "Barcode successfully decoded"
	MsgNotDecoded = "No barcode decoded"
	MsgLoadFailed = "Failed to load image"

	annotatedQuality = 85

	// MaxPixels caps the declared width*height of an upload.
	MaxPixels = 4096 * 4096
)

// Result mirrors the scan endpoint payload.
type Result struct {
	Success        bool
	Message        string
	ImageWithBoxes string // base64 JPEG
	BarcodeData    string
	Format         string
	DetectionCount int
}

type Scanner struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewScanner() *Scanner {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	return &Scanner{
		reader: oned.NewMultiFormatUPCEANReader(hints),
		hints:  hints,
	}
}

// Scan tries a direct decode, then the preprocessed images, then a 90 degree
// rotation. Found barcodes are boxed in green on the original image. Images
// whose header declares more than MaxPixels are refused before decoding.
func (s *Scanner) Scan(data []byte) Result {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("barcode image header unreadable", "error", err)
		return Result{Message: MsgLoadFailed}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		slog.Warn("barcode image too large", "width", cfg.Width, "height", cfg.Height)
		return Result{Message: MsgLoadFailed}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("barcode image decode failed", "error", err)
		return Result{Message: MsgLoadFailed}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	res := Result{Message: MsgNotDecoded}
	if decoded, stage, unmap, ok := s.find(canvas); ok {
		res.Success = true
		res.Message = MsgDecoded
		res.BarcodeData = decoded.GetText()
		res.Format = decoded.GetBarcodeFormat().String()
		res.DetectionCount = 1
		drawBox(canvas, boundingBox(decoded.GetResultPoints(), unmap, canvas.Bounds()), boxThickness(canvas.Bounds()))
		slog.Info("barcode decoded", "stage", stage, "format", res.Format, "input_format", format)
	}

	encoded, err := encodeJPEG(canvas)
	if err != nil {
		slog.Error("annotated image encode failed", "error", err)
	}
	res.ImageWithBoxes = encoded
	return res
}

// find runs the decode stages in order and stops at the first hit. Later
// stages are only built when the earlier ones fail.
func (s *Scanner) find(canvas *image.RGBA) (*gozxing.Result, string, func(x, y float64) (float64, float64), bool) {
	identity := func(x, y float64) (float64, float64) { return x, y }

	if decoded, ok := s.decode(canvas); ok {
		return decoded, "direct", identity, true
	}
	for _, v := range preprocess(canvas) {
		if decoded, ok := s.decode(v.img); ok {
			return decoded, v.name, identity, true
		}
	}
	rotated, unmap := rotate(canvas)
	if decoded, ok := s.decode(rotated); ok {
		return decoded, "rotated", unmap, true
	}
	return nil, "", nil, false
}

func (s *Scanner) decode(img image.Image) (*gozxing.Result, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, false
	}
	result, err := s.reader.Decode(bmp, s.hints)
	if err != nil || result == nil || result.GetText() == "" {
		return nil, false
	}
	return result, true
}

// boundingBox covers the result points. One-dimensional codes report points
// along a single row, so the box is given a height proportional to its width.
func boundingBox(points []gozxing.ResultPoint, unmap func(x, y float64) (float64, float64), bounds image.Rectangle) image.Rectangle {
	if len(points) == 0 {
		return bounds.Inset(2)
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		x, y := unmap(p.GetX(), p.GetY())
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	padX := (maxX - minX) * 0.1
	padY := (maxX - minX) * 0.3
	if maxY-minY > maxX-minX {
		padX, padY = (maxY-minY)*0.3, (maxY-minY)*0.1
	}
	r := image.Rect(
		int(minX-padX), int(minY-padY),
		int(maxX+padX)+1, int(maxY+padY)+1,
	)
	return r.Intersect(bounds)
}

func boxThickness(b image.Rectangle) int {
	t := min(b.Dx(), b.Dy()) / 150
	return max(t, 2)
}

func encodeJPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: annotatedQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
