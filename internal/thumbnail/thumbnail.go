// ABOUTME: Thumbnail generation for background images
// ABOUTME: Scales stills with Catmull-Rom and GIFs frame by frame
package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultScale shrinks images to a quarter of their size.
const DefaultScale = 0.25

// ErrUnsupportedFormat is returned for files that are not png, jpeg, gif or webp.
var ErrUnsupportedFormat = errors.New("thumbnail: unsupported image format")

// Formats lists the extensions thumbnails can be made from.
var Formats = []string{"png", "jpg", "jpeg", "gif", "webp"}

// Supported reports whether the file extension is a known image format.
func Supported(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, f := range Formats {
		if f == ext {
			return true
		}
	}
	return false
}

// Generator writes thumbnails next to their source images.
type Generator struct {
	Scale  float64
	Logger *log.Logger
}

// New returns a generator; a non-positive scale means DefaultScale.
func New(scale float64, logger *log.Logger) *Generator {
	if scale <= 0 || scale > 1 {
		scale = DefaultScale
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{Scale: scale, Logger: logger}
}

// Create writes the thumbnail for src into dir and returns its path.
func (g *Generator) Create(src, dir string) (string, error) {
	if !Supported(src) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(src))
	}
	dst := filepath.Join(dir, ThumbName(filepath.Base(src)))

	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	if strings.EqualFold(filepath.Ext(src), ".gif") {
		err = g.resizeGIF(in, dst)
	} else {
		err = g.resizeStill(in, dst)
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	g.Logger.Debug("created thumbnail", "path", dst)
	return dst, nil
}

func (g *Generator) resizeStill(r io.Reader, dst string) error {
	img, format, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	out := Scale(img, g.Scale)

	f, err := os.Create(dst) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer f.Close()

	switch format {
	case "jpeg":
		err = jpeg.Encode(f, out, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(f, out)
	}
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return f.Close()
}

func (g *Generator) resizeGIF(r io.Reader, dst string) error {
	anim, err := gif.DecodeAll(r)
	if err != nil {
		return fmt.Errorf("failed to decode gif: %w", err)
	}

	anim.Config.Width = scaleDim(anim.Config.Width, g.Scale)
	anim.Config.Height = scaleDim(anim.Config.Height, g.Scale)
	canvas := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)

	frames := make([]*image.Paletted, 0, len(anim.Image))
	for _, frame := range anim.Image {
		b := clampRect(scaleRect(frame.Bounds(), g.Scale), canvas)
		out := image.NewPaletted(b, frame.Palette)
		draw.CatmullRom.Scale(out, b, frame, frame.Bounds(), draw.Src, nil)
		frames = append(frames, out)
	}
	anim.Image = frames

	f, err := os.Create(dst) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer f.Close()
	if err := gif.EncodeAll(f, anim); err != nil {
		return fmt.Errorf("failed to encode gif: %w", err)
	}
	return f.Close()
}

// Scale resizes img by factor, never below one pixel per side.
func Scale(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, scaleDim(b.Dx(), factor), scaleDim(b.Dy(), factor)))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}

func scaleDim(n int, factor float64) int {
	s := int(float64(n) * factor)
	if s < 1 {
		return 1
	}
	return s
}

func scaleRect(r image.Rectangle, factor float64) image.Rectangle {
	origin := image.Pt(int(float64(r.Min.X)*factor), int(float64(r.Min.Y)*factor))
	return image.Rectangle{
		Min: origin,
		Max: origin.Add(image.Pt(scaleDim(r.Dx(), factor), scaleDim(r.Dy(), factor))),
	}
}

// clampRect fits r inside canvas, keeping at least one pixel. Rounding
// can push small sub-frames near the edge past the scaled canvas.
func clampRect(r, canvas image.Rectangle) image.Rectangle {
	if r.Min.X > canvas.Max.X-1 {
		r.Min.X = canvas.Max.X - 1
	}
	if r.Min.Y > canvas.Max.Y-1 {
		r.Min.Y = canvas.Max.Y - 1
	}
	if r.Min.X < canvas.Min.X {
		r.Min.X = canvas.Min.X
	}
	if r.Min.Y < canvas.Min.Y {
		r.Min.Y = canvas.Min.Y
	}
	if r.Max.X > canvas.Max.X {
		r.Max.X = canvas.Max.X
	}
	if r.Max.Y > canvas.Max.Y {
		r.Max.Y = canvas.Max.Y
	}
	if r.Max.X <= r.Min.X {
		r.Max.X = r.Min.X + 1
	}
	if r.Max.Y <= r.Min.Y {
		r.Max.Y = r.Min.Y + 1
	}
	return r
}
