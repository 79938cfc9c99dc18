package barcode

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// localBias is how far below the local mean a pixel must fall to count
	// as a bar.
	localBias = 0.05
	minRadius = 8
)

// variant is one preprocessed image to retry a failed decode on.
type variant struct {
	name string
	img  *image.Gray
}

// preprocess returns the retry images in the order they are tried: the
// min-max normalised grayscale, a global Otsu binarisation, an Otsu split
// inside the dark class, and a per-row local mean binarisation.
// When a bright background takes the global threshold, the dark class split
// is the one that separates bars from spaces.
func preprocess(src image.Image) []variant {
	g := toGray(src)
	normalize(g)

	hist := histogram(g)
	global := otsu(&hist, 255)
	dark := otsu(&hist, int(global))

	return []variant{
		{name: "normalized", img: g},
		{name: "otsu", img: binarize(g, global)},
		{name: "otsu-dark", img: binarize(g, dark)},
		{name: "local", img: binarizeRows(g, rowRadius(g.Bounds()), localBias)},
	}
}

// toGray converts any image to 8-bit luminance.
func toGray(src image.Image) *image.Gray {
	n := imaging.Grayscale(src)
	g := image.NewGray(image.Rect(0, 0, n.Rect.Dx(), n.Rect.Dy()))
	for i := range g.Pix {
		g.Pix[i] = n.Pix[i*4]
	}
	return g
}

// normalize stretches the grayscale range to [0,255].
func normalize(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range g.Pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi <= lo {
		return
	}
	scale := 255.0 / float64(hi-lo)
	for i, p := range g.Pix {
		g.Pix[i] = uint8(float64(p-lo)*scale + 0.5)
	}
}

func histogram(g *image.Gray) [256]int {
	var hist [256]int
	for _, p := range g.Pix {
		hist[p]++
	}
	return hist
}

// otsu picks the threshold maximising between-class variance over the bins
// 0..hi. Pixels at or below the result are dark.
func otsu(hist *[256]int, hi int) uint8 {
	hi = min(max(hi, 0), 255)

	var total int
	var sum float64
	for i := 0; i <= hi; i++ {
		total += hist[i]
		sum += float64(i * hist[i])
	}
	if total == 0 {
		return uint8(hi / 2)
	}

	var sumB, best float64
	wB := 0
	threshold := uint8(0)
	for t := 0; t <= hi; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func binarize(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, p := range g.Pix {
		if p > t {
			out.Pix[i] = 255
		}
	}
	return out
}

func rowRadius(b image.Rectangle) int {
	return max(b.Dx()/32, minRadius)
}

// binarizeRows thresholds each pixel against the mean of a window of radius r
// along its own row.
func binarizeRows(g *image.Gray, r int, bias float64) *image.Gray {
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	prefix := make([]int, w+1)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, p := range row {
			prefix[x+1] = prefix[x] + int(p)
		}
		for x, p := range row {
			lo, hi := max(x-r, 0), min(x+r+1, w)
			mean := float64(prefix[hi]-prefix[lo]) / float64(hi-lo)
			if float64(p) >= mean*(1-bias) {
				dst[x] = 255
			}
		}
	}
	return out
}

// rotate turns src 90 degrees counter-clockwise and returns the function that
// maps a point in the rotated image back onto src.
func rotate(src image.Image) (*image.NRGBA, func(x, y float64) (float64, float64)) {
	w := float64(src.Bounds().Dx())
	unmap := func(x, y float64) (float64, float64) { return w - 1 - y, x }
	return imaging.Rotate90(src), unmap
}

var boxColor = color.RGBA{G: 255, A: 255}

// drawBox outlines r on img with a stroke of the given thickness.
func drawBox(img draw.Image, r image.Rectangle, thickness int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	fill := image.NewUniform(boxColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}
