// Package preprocess turns captured images into the normalized input tensor
// the mineral CNN was trained on.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Model input geometry.
const (
	Size     = 224
	Channels = 3
	Len      = Channels * Size * Size
)

// Per-channel normalization constants (RGB). These must stay identical to
// the ones used at training time.
var (
	Mean = [Channels]float32{0.485, 0.456, 0.406}
	Std  = [Channels]float32{0.229, 0.224, 0.225}
)

// Shape is the model input shape, NCHW.
var Shape = []int64{1, Channels, Size, Size}

// ErrInvalidFrame is returned for nil or zero-size images.
var ErrInvalidFrame = errors.New("preprocess: invalid frame")

// Tensor resizes img to Size×Size and returns the normalized values in
// channel-first order.
//
// Scaling is a point sample: each output pixel copies the source pixel under
// its center, with no averaging when shrinking. Colors are read
// un-premultiplied, so translucent pixels keep their straight RGB.
func Tensor(img image.Image) ([]float32, error) {
	out := make([]float32, Len)
	if err := Into(out, img); err != nil {
		return nil, err
	}
	return out, nil
}

// Into is Tensor writing into a caller-owned buffer of length Len.
func Into(dst []float32, img image.Image) error {
	if len(dst) != Len {
		return fmt.Errorf("preprocess: destination has %d values, want %d", len(dst), Len)
	}
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidFrame)
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, b.Dx(), b.Dy())
	}

	resized := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	draw.NearestNeighbor.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	const plane = Size * Size
	for i := 0; i < plane; i++ {
		px := resized.Pix[i*4 : i*4+3 : i*4+3]
		dst[i] = normalize(px[0], 0)
		dst[plane+i] = normalize(px[1], 1)
		dst[2*plane+i] = normalize(px[2], 2)
	}
	return nil
}

// normalize applies (v/255 - mean) / std to an 8-bit channel value.
func normalize(v uint8, c int) float32 {
	return (float32(v)/255 - Mean[c]) / Std[c]
}
