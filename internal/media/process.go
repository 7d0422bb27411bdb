package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MasterMaxSize = 2048
	JPEGQuality   = 82
	WebPQuality   = 70
)

// Validation failures returned by Normalize.
var (
	ErrEmpty            = errors.New("no file uploaded")
	ErrTooLarge         = errors.New("file too large")
	ErrInvalidType      = errors.New("invalid image type")
	ErrInvalidImage     = errors.New("invalid image file")
	ErrContentMismatch  = errors.New("image content type mismatch")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

var allowedRatios = []float64{1.91, 1.0, 0.8}

// Processed holds every encoded rendition of one upload.
type Processed struct {
	MasterJPEG []byte
	MasterWebP []byte
	Squares    map[int][]byte
	Width      int
	Height     int
}

// Normalize validates an upload, crops it to the nearest allowed aspect ratio,
// bounds it to MasterMaxSize and renders the master and square renditions.
func Normalize(content []byte, contentType string, maxBytes int64) (*Processed, error) {
	if len(content) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w (max %dMB)", ErrTooLarge, maxBytes/(1024*1024))
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return nil, ErrInvalidType
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, ErrInvalidImage
	}
	sourceMime := decodedFormatToMime(format)
	if sourceMime == "" {
		return nil, ErrUnsupportedImage
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMime) {
		return nil, ErrContentMismatch
	}

	b := decoded.Bounds()
	cropped := cropToRect(decoded, cropRect(b.Dx(), b.Dy()))
	master := resizeToFit(cropped, MasterMaxSize, MasterMaxSize)

	out := &Processed{
		Squares: make(map[int][]byte, len(SquareSizes)),
		Width:   master.Bounds().Dx(),
		Height:  master.Bounds().Dy(),
	}
	if out.MasterJPEG, err = encodeJPEG(master); err != nil {
		return nil, err
	}
	if out.MasterWebP, err = encodeWebP(master); err != nil {
		return nil, err
	}

	mb := master.Bounds()
	side := min(mb.Dx(), mb.Dy())
	square := cropToRect(master, image.Rect(
		mb.Min.X+(mb.Dx()-side)/2,
		mb.Min.Y+(mb.Dy()-side)/2,
		mb.Min.X+(mb.Dx()-side)/2+side,
		mb.Min.Y+(mb.Dy()-side)/2+side,
	))
	for _, size := range SquareSizes {
		data, err := encodeJPEG(scaleTo(square, size, size))
		if err != nil {
			return nil, err
		}
		out.Squares[size] = data
	}
	return out, nil
}

// cropRect centers the largest rectangle of the nearest allowed ratio inside w x h.
func cropRect(w, h int) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rect(0, 0, w, h)
	}
	ratio := float64(w) / float64(h)
	best := 1.0
	bestDist := absFloat(ratio - best)
	for _, r := range allowedRatios {
		if d := absFloat(ratio - r); d < bestDist {
			bestDist = d
			best = r
		}
	}

	var cw, ch int
	if ratio > best {
		ch = h
		cw = int(float64(h) * best)
	} else {
		cw = w
		ch = int(float64(w) / best)
	}
	cw = max(cw, 1)
	ch = max(ch, 1)
	x := (w - cw) / 2
	y := (h - ch) / 2
	return image.Rect(x, y, x+cw, y+ch)
}

func cropToRect(src image.Image, r image.Rectangle) image.Image {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min.Add(r.Min), draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}
	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	return scaleTo(src, max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1))
}

func scaleTo(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func isMatchingContentType(provided, detected string) bool {
	if provided == detected {
		return true
	}
	return provided == "image/jpg" && detected == "image/jpeg"
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(format) {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
