package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/pipeline"
)

// Streamer produces frames into a Handoff. Stream must return once ctx is
// done and close h on return.
type Streamer interface {
	Stream(ctx context.Context, h *Handoff)
}

// StartContinuous feeds src into p's continuous worker. When the worker
// stops, because ctx is done or the pipeline halted, the stream is stopped
// too. The returned wait blocks until both goroutines have exited.
func StartContinuous(ctx context.Context, p *pipeline.Pipeline, src Streamer, log logrus.FieldLogger) (wait func()) {
	streamCtx, stopStream := context.WithCancel(ctx)
	frames := NewHandoff()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		src.Stream(streamCtx, frames)
	}()
	go func() {
		defer wg.Done()
		defer stopStream()
		err := p.Run(ctx, frames.Frames())
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("continuous analysis stopped, closing camera stream")
		}
	}()
	return wg.Wait
}
