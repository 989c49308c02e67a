// Package capture supplies frames to the pipeline: decoded still images and
// the hand-off used by live sources.
package capture

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when no registered decoder accepts the
// input.
var ErrUnsupportedImage = errors.New("capture: unsupported image format")

// ImageFrame is a frame backed by an already decoded image.
type ImageFrame struct {
	img    image.Image
	Format string

	once      sync.Once
	onRelease func()
}

// NewImageFrame wraps img. onRelease may be nil.
func NewImageFrame(img image.Image, onRelease func()) *ImageFrame {
	return &ImageFrame{img: img, onRelease: onRelease}
}

// Decode reads a JPEG, PNG, GIF, BMP, TIFF or WebP image.
func Decode(r io.Reader) (*ImageFrame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("capture: decode image: %w", err)
	}
	return &ImageFrame{img: img, Format: format}, nil
}

// Image implements pipeline.Frame.
func (f *ImageFrame) Image() (image.Image, error) {
	return f.img, nil
}

// Release implements pipeline.Frame. Only the first call has an effect.
func (f *ImageFrame) Release() {
	f.once.Do(func() {
		if f.onRelease != nil {
			f.onRelease()
		}
	})
}
