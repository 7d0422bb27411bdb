// Package media normalizes uploaded photos and builds the URLs clients use to fetch them.
package media

import (
	"fmt"
	"strings"
)

const (
	baseSize = 300
	// MasterJPEG and MasterWebP are the object names of the normalized master.
	MasterJPEG = "master.jpg"
	MasterWebP = "master.webp"
)

// SquareSizes lists every crop-filled square rendered at upload time.
var SquareSizes = []int{200, 300, 400, 600, 1200}

// Sources are the responsive renditions of one image.
type Sources struct {
	Mini   string `json:"mini"`
	Main   string `json:"main"`
	Retina string `json:"retina"`
}

// SizesFor returns the mini, main and retina edge lengths. Big images double the base.
func SizesFor(big bool) (mini, main, retina int) {
	base := baseSize
	if big {
		base *= 2
	}
	return base * 2 / 3, base, base * 2
}

// ObjectKey names a stored rendition of src.
func ObjectKey(src, name string) string {
	return src + "/" + name
}

// SquareName is the object name of a crop-filled square of the given edge.
func SquareName(size int) string {
	return fmt.Sprintf("c_fill_%d.jpg", size)
}

// URLBuilder turns stored image ids into public URLs.
type URLBuilder struct {
	baseURL string
}

// NewURLBuilder serves objects from baseURL.
func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the public URL of a stored object name under src.
func (b *URLBuilder) URL(src, name string) string {
	return b.baseURL + "/" + ObjectKey(src, name)
}

// Sources builds the mini/main/retina square JPEG URLs for src.
func (b *URLBuilder) Sources(src string, big bool) Sources {
	mini, main, retina := SizesFor(big)
	return Sources{
		Mini:   b.URL(src, SquareName(mini)),
		Main:   b.URL(src, SquareName(main)),
		Retina: b.URL(src, SquareName(retina)),
	}
}
