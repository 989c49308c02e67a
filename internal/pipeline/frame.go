package pipeline

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Frame is a captured image on loan from the capture subsystem. The
// pipeline calls Release exactly once per frame it is handed, whatever the
// outcome.
type Frame interface {
	Image() (image.Image, error)
	Release()
}

// Sink receives delivered results. Deliver must not block for long; the
// continuous worker calls it inline.
type Sink interface {
	Deliver(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

// Deliver calls f.
func (f SinkFunc) Deliver(r Result) { f(r) }

// WriterSink writes each result's text payload followed by a blank line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Deliver implements Sink.
func (s *WriterSink) Deliver(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s\n\n", r.Text())
}

// LogSink logs each result at info level.
type LogSink struct {
	Log logrus.FieldLogger
}

// Deliver implements Sink.
func (s LogSink) Deliver(r Result) {
	s.Log.WithFields(logrus.Fields{
		"cycle":      r.ID,
		"source":     r.Source,
		"class":      r.Label,
		"confidence": r.Percent,
		"latency_ms": r.LatencyMillis(),
	}).Info("classified")
}

// Multi fans a result out to several sinks in order.
type Multi []Sink

// Deliver implements Sink.
func (m Multi) Deliver(r Result) {
	for _, s := range m {
		s.Deliver(r)
	}
}
