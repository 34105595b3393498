// Package imageprep validates uploaded images and normalizes them into
// self-contained payloads bounded by a maximum edge length.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"

	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"

	"github.com/basel-ax/restyle/internal/domain"
)

const (
	DefaultMaxBytes = 10 << 20
	DefaultMaxEdge  = 1920
	DefaultQuality  = 85
)

// allowedTypes is the upload allow-list. Anything else is rejected
// before decoding.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Preparer validates and normalizes uploaded images.
type Preparer struct {
	MaxBytes int64
	MaxEdge  int
	Quality  int
}

// New creates a Preparer with the given limits (or defaults for zero values).
func New(maxBytes int64, maxEdge, quality int) *Preparer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Preparer{MaxBytes: maxBytes, MaxEdge: maxEdge, Quality: quality}
}

// Prepared is the normalized result of an accepted upload.
type Prepared struct {
	Payload string // JPEG data URL
	Width   int
	Height  int
}

// Prepare validates the upload against the declared MIME type and byte
// ceiling, decodes it, downscales so the longer edge does not exceed
// MaxEdge while preserving aspect ratio, and re-encodes as a JPEG data
// URL. The encoded payload is re-checked against the same ceiling.
func (p *Preparer) Prepare(r io.Reader, contentType string) (*Prepared, error) {
	if !allowedTypes[contentType] {
		return nil, domain.NewValidationError("unsupported image type %q, want JPEG or PNG", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(r, p.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, domain.NewValidationError("image exceeds the %d byte limit", p.MaxBytes)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewValidationError("cannot decode image: %v", err)
	}

	bounds := src.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), p.MaxEdge)

	out := src
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	if int64(len(payload)) > p.MaxBytes {
		return nil, domain.NewValidationError("prepared image still exceeds the %d byte limit", p.MaxBytes)
	}

	return &Prepared{Payload: payload, Width: width, Height: height}, nil
}

// PrepareFile opens and prepares the image at path. The file handle is
// released on every path, success or failure.
func (p *Preparer) PrepareFile(path string) (*Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	// Sniff the content type from the first 512 bytes, then rewind.
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind image: %w", err)
	}

	return p.Prepare(f, http.DetectContentType(head[:n]))
}

// fitWithin computes output dimensions whose longer edge does not
// exceed maxEdge, preserving aspect ratio. Dimensions already within
// bounds are returned unchanged.
func fitWithin(width, height, maxEdge int) (int, int) {
	if width <= maxEdge && height <= maxEdge {
		return width, height
	}
	if width >= height {
		scaled := (height*maxEdge + width/2) / width
		if scaled < 1 {
			scaled = 1
		}
		return maxEdge, scaled
	}
	scaled := (width*maxEdge + height/2) / height
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxEdge
}
