// Package pipeline runs mineral classification cycles: preprocess, infer,
// interpret, deliver. It serves both one-shot captures and a continuous
// camera stream, and owns the mode flag that gates the stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/model"
	"github.com/Brownie44l1/mineral-api/internal/preprocess"
	"github.com/Brownie44l1/mineral-api/internal/scores"
)

// DefaultInferenceTimeout bounds a single forward pass.
const DefaultInferenceTimeout = 2 * time.Second

// DefaultTopK is how many ranked classes a result carries.
const DefaultTopK = 3

// Pipeline classifies frames. All model calls go through one model.Serial,
// so one-shot and continuous cycles never run the model at the same time.
type Pipeline struct {
	engine *model.Serial
	sink   Sink
	log    logrus.FieldLogger
	topK   int

	mode   atomic.Int32
	halted atomic.Bool
	stats  counters
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	timeout time.Duration
	log     logrus.FieldLogger
	mode    Mode
	topK    int
}

// WithInferenceTimeout bounds each model call. Zero disables the bound.
func WithInferenceTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithMode sets the initial mode. The default is Paused.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithTopK sets how many ranked classes each result carries.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// New builds a pipeline around engine. The engine is wrapped in a
// model.Serial and must not be called by anyone else afterwards.
func New(engine model.Engine, sink Sink, opts ...Option) *Pipeline {
	o := options{
		timeout: DefaultInferenceTimeout,
		log:     logrus.StandardLogger(),
		mode:    Paused,
		topK:    DefaultTopK,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		engine: model.NewSerial(engine, o.timeout),
		sink:   sink,
		log:    o.log,
		topK:   o.topK,
	}
	p.mode.Store(int32(o.mode))
	return p
}

// Mode returns the current mode.
func (p *Pipeline) Mode() Mode {
	return Mode(p.mode.Load())
}

// SetMode sets the mode. It applies from the next continuous frame on.
func (p *Pipeline) SetMode(m Mode) {
	old := Mode(p.mode.Swap(int32(m)))
	if old != m {
		p.log.WithFields(logrus.Fields{"from": old, "to": m}).Info("mode changed")
	}
}

// Toggle flips between Paused and RealTime and returns the new mode.
func (p *Pipeline) Toggle() Mode {
	for {
		old := p.mode.Load()
		next := RealTime
		if Mode(old) == RealTime {
			next = Paused
		}
		if p.mode.CompareAndSwap(old, int32(next)) {
			p.log.WithFields(logrus.Fields{"from": Mode(old), "to": next}).Info("mode changed")
			return next
		}
	}
}

// Halted reports whether a score shape mismatch has stopped the pipeline.
func (p *Pipeline) Halted() bool {
	return p.halted.Load()
}

// Close waits for any model call still running, including one abandoned by
// a cancelled or timed-out cycle, and makes later cycles fail with
// model.ErrEngineClosed. Release the engine only after Close returns.
func (p *Pipeline) Close() {
	p.engine.Close()
}

// OneShot classifies a single user-requested frame and delivers the result
// whatever the current mode. The frame is released before OneShot returns.
func (p *Pipeline) OneShot(ctx context.Context, frame Frame) (Result, error) {
	if p.halted.Load() {
		frame.Release()
		return Result{}, ErrHalted
	}

	res, err := p.cycle(ctx, frame, SourceOneShot)
	if err != nil {
		return Result{}, err
	}
	p.deliver(res)
	return res, nil
}

// Analyze runs one continuous-mode step. The mode is read once, when the
// frame is taken: a paused frame is released without being classified, and
// a real-time frame is delivered even if the mode flips while it runs.
// It reports whether a result reached the sink.
func (p *Pipeline) Analyze(ctx context.Context, frame Frame) (bool, error) {
	if p.halted.Load() {
		frame.Release()
		return false, ErrHalted
	}
	if p.Mode() != RealTime {
		frame.Release()
		p.stats.skipped.Add(1)
		return false, nil
	}

	res, err := p.cycle(ctx, frame, SourceContinuous)
	if err != nil {
		return false, err
	}
	p.deliver(res)
	return true, nil
}

// Run is the continuous worker. It processes frames one at a time until ctx
// is done, frames is closed, or the pipeline halts. Failed cycles are
// logged and skipped; only a halt is returned as an error. Frames still
// buffered in the channel when Run returns are released.
func (p *Pipeline) Run(ctx context.Context, frames <-chan Frame) error {
	defer drain(frames)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if _, err := p.Analyze(ctx, frame); err != nil {
				if errors.Is(err, ErrHalted) || errors.Is(err, scores.ErrScoreShapeMismatch) {
					return err
				}
			}
		}
	}
}

func drain(frames <-chan Frame) {
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			f.Release()
		default:
			return
		}
	}
}

// cycle runs preprocess → infer → interpret on frame and releases it.
// Latency covers frame conversion through score extraction.
func (p *Pipeline) cycle(ctx context.Context, frame Frame, src Source) (Result, error) {
	defer frame.Release()

	id := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"cycle": id, "source": src})
	fail := func(stage Stage, err error) (Result, error) {
		p.stats.failed.Add(1)
		cerr := &CycleError{Cycle: id, Stage: stage, Err: err}
		if errors.Is(err, scores.ErrScoreShapeMismatch) {
			p.halted.Store(true)
			log.WithError(err).Error("score vector does not match class table, halting")
		} else {
			log.WithError(err).WithField("stage", stage).Warn("classification aborted")
		}
		return Result{}, cerr
	}

	start := time.Now()

	img, err := frame.Image()
	if err != nil {
		return fail(StageFrame, fmt.Errorf("%w: %w", preprocess.ErrInvalidFrame, err))
	}

	tensor, err := preprocess.Tensor(img)
	if err != nil {
		return fail(StagePreprocess, err)
	}

	outputs, err := p.engine.Run(ctx, tensor)
	if err != nil {
		return fail(StageInfer, err)
	}
	raw := outputs[0]
	latency := time.Since(start)

	pred, err := scores.Interpret(raw)
	if err != nil {
		return fail(StageInterpret, err)
	}

	p.stats.classified.Add(1)
	log.WithFields(logrus.Fields{
		"class":      pred.Label,
		"confidence": pred.Percent(),
		"latency":    latency,
	}).Debug("cycle complete")

	return Result{
		ID:         id,
		Source:     src,
		Label:      pred.Label,
		Confidence: pred.Confidence,
		Percent:    pred.Percent(),
		Latency:    latency,
		Ranked:     pred.Ranked(p.topK),
		At:         time.Now(),
	}, nil
}

func (p *Pipeline) deliver(r Result) {
	if p.sink != nil {
		p.sink.Deliver(r)
	}
	p.stats.delivered.Add(1)
}
