// Package imageutil decodes captured frames and prepares them for face detection.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode is returned for any input that is not a decodable image.
var ErrImageDecode = errors.New("image could not be decoded")

const jpegQuality = 85

// Prepared is a decoded frame re-encoded as JPEG.
type Prepared struct {
	Data   []byte
	Width  int
	Height int
}

// DecodeDataURL decodes a base64 image, with or without a "data:image/...;base64," prefix.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, fmt.Errorf("%w: unsupported data URL", ErrImageDecode)
		}
		s = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return data, nil
}

// Prepare decodes an image, downsizes it to fit within maxSize (width or
// height) keeping aspect ratio, and re-encodes it as JPEG.
func Prepare(data []byte, maxSize int) (*Prepared, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxSize || height > maxSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = int(float64(height) * float64(maxSize) / float64(width))
		} else {
			newHeight = maxSize
			newWidth = int(float64(width) * float64(maxSize) / float64(height))
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
		width, height = newWidth, newHeight
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Prepared{Data: buf.Bytes(), Width: width, Height: height}, nil
}
