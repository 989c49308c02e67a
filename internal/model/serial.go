package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Serial owns an Engine and lets only one call into it at a time. Every
// call is bounded by Timeout.
//
// A call that times out keeps its slot until the engine actually returns,
// so a slow forward pass can never overlap with the next one.
type Serial struct {
	engine  Engine
	timeout time.Duration
	slot    chan struct{}

	closing   chan struct{}
	closeOnce sync.Once
}

// NewSerial wraps e. A non-positive timeout disables the per-call bound.
func NewSerial(e Engine, timeout time.Duration) *Serial {
	return &Serial{
		engine:  e,
		timeout: timeout,
		slot:    make(chan struct{}, 1),
		closing: make(chan struct{}),
	}
}

// Close rejects new calls with ErrEngineClosed and blocks until the engine
// call in flight, if any, has returned. This includes a call whose caller
// already gave up on a timeout. After Close the engine is never entered
// again, so it is safe to release it.
func (s *Serial) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.slot <- struct{}{}
	})
}

type runResult struct {
	out [][]float32
	err error
}

// Run forwards input to the wrapped engine. Engine errors, panics and
// timeouts all come back wrapping ErrInferenceFailure.
func (s *Serial) Run(ctx context.Context, input []float32) ([][]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case <-s.closing:
		return nil, ErrEngineClosed
	default:
	}

	select {
	case s.slot <- struct{}{}:
	case <-s.closing:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctxError(ctx)
	}
	select {
	case <-s.closing:
		<-s.slot
		return nil, ErrEngineClosed
	default:
	}

	done := make(chan runResult, 1)
	go func() {
		defer func() { <-s.slot }()
		defer func() {
			if r := recover(); r != nil {
				done <- runResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		out, err := s.engine.Run(ctx, input)
		done <- runResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		return finish(r)
	case <-ctx.Done():
		// Prefer a result that raced the deadline.
		select {
		case r := <-done:
			return finish(r)
		default:
		}
		return nil, ctxError(ctx)
	}
}

func finish(r runResult) ([][]float32, error) {
	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, ErrInferenceTimeout
		}
		if errors.Is(r.err, ErrInferenceFailure) {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, r.err)
	}
	if len(r.out) == 0 {
		return nil, fmt.Errorf("%w: engine returned no outputs", ErrInferenceFailure)
	}
	return r.out, nil
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrInferenceTimeout
	}
	return fmt.Errorf("%w: %w", ErrInferenceFailure, ctx.Err())
}
