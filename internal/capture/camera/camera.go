// Package camera reads frames from a local camera or stream with OpenCV.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/Brownie44l1/mineral-api/internal/capture"
)

// ErrNoFrame is returned when the device produced nothing.
var ErrNoFrame = errors.New("camera: no frame")

// retryDelay is the pause after a failed read in Stream.
const retryDelay = 20 * time.Millisecond

// Camera wraps a gocv.VideoCapture. Reads are serialized so a one-shot grab
// can interleave with a running stream.
type Camera struct {
	device string
	log    logrus.FieldLogger

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// Open opens device: a numeric index ("0"), a file, or a stream URL.
func Open(device string, log logrus.FieldLogger) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera: device %s not opened", device)
	}
	return &Camera{device: device, log: log, cap: vc}, nil
}

// Frame is a captured Mat. Release closes it.
type Frame struct {
	mat  gocv.Mat
	once sync.Once
}

// Image converts the Mat (BGR) to an image.Image.
func (f *Frame) Image() (image.Image, error) {
	if f.mat.Empty() {
		return nil, ErrNoFrame
	}
	return f.mat.ToImage()
}

// Release closes the underlying Mat once.
func (f *Frame) Release() {
	f.once.Do(func() { f.mat.Close() })
}

func (c *Camera) read() (*Frame, error) {
	mat := gocv.NewMat()

	c.mu.Lock()
	ok := c.cap.Read(&mat)
	c.mu.Unlock()

	if !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &Frame{mat: mat}, nil
}

// Grab reads a single frame for a one-shot capture.
func (c *Camera) Grab(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.read()
}

// Stream reads frames until ctx is done and offers each to h. It closes h
// on return.
func (c *Camera) Stream(ctx context.Context, h *capture.Handoff) {
	defer h.Close()

	log := c.log.WithField("device", c.device)
	log.Info("camera stream started")
	defer func() {
		log.WithField("dropped", h.Dropped()).Info("camera stream stopped")
	}()

	for ctx.Err() == nil {
		f, err := c.read()
		if err != nil {
			log.WithError(err).Debug("read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		h.Offer(f)
	}
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.Close()
}
