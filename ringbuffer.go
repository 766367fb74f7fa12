// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import (
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RingBuffer is the facade over a preallocated slot array, a claim/publish
// sequencer, and the gating-sequence registry that throttles producers to
// the slowest attached consumer. Construct one with NewSingleProducer or
// NewMultiProducer; the zero value is not usable.
type RingBuffer[T any] struct {
	id         uuid.UUID
	slots      []T
	mask       int64
	bufferSize int64

	seq          sequencer
	waitStrategy WaitStrategy

	logger  *zap.Logger
	metrics *metricsRecorder
}

func validateBufferSize(bufferSize int64) error {
	if bufferSize < 1 || bufferSize&(bufferSize-1) != 0 {
		return invalidConfigf("buffer size must be a power of two >= 1, got %d", bufferSize)
	}
	return nil
}

// newRingBuffer assembles the facade around an already-validated
// bufferSize and an already-constructed sequencer. Callers (NewSingleProducer,
// NewMultiProducer) are responsible for validating bufferSize first, since
// the sequencer's own construction (e.g. computing the availability-buffer
// index shift) depends on it already being a valid power of two.
func newRingBuffer[T any](factory func() T, bufferSize int64, waitStrategy WaitStrategy, seq sequencer, opts []Option) (*RingBuffer[T], error) {
	if factory == nil {
		return nil, invalidConfigf("factory must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	slots := make([]T, bufferSize)
	for i := range slots {
		slots[i] = factory()
	}

	r := &RingBuffer[T]{
		id:           cfg.id,
		slots:        slots,
		mask:         bufferSize - 1,
		bufferSize:   bufferSize,
		seq:          seq,
		waitStrategy: waitStrategy,
		logger:       cfg.logger,
		metrics:      newMetricsRecorder(cfg.id, cfg.metricsEnabled),
	}
	return r, nil
}

// NewSingleProducer constructs a RingBuffer that only ever allows one
// producer goroutine to call its claim/publish methods. factory is
// invoked once per slot, up front, to preallocate bufferSize events.
// bufferSize must be a power of two, or this returns ErrInvalidConfiguration.
func NewSingleProducer[T any](factory func() T, bufferSize int64, waitStrategy WaitStrategy, opts ...Option) (*RingBuffer[T], error) {
	if err := validateBufferSize(bufferSize); err != nil {
		return nil, err
	}
	ws := nonNilStrategy(waitStrategy)
	seq := newSingleProducerSequencer(bufferSize, ws)
	r, err := newRingBuffer(factory, bufferSize, ws, seq, opts)
	if err != nil {
		return nil, err
	}
	r.logConstruction(SingleProducer)
	return r, nil
}

// NewMultiProducer constructs a RingBuffer that tolerates any number of
// concurrent producer goroutines, coordinating claims with CAS and
// tracking per-slot availability independently of the claim cursor.
// bufferSize must be a power of two, or this returns ErrInvalidConfiguration.
func NewMultiProducer[T any](factory func() T, bufferSize int64, waitStrategy WaitStrategy, opts ...Option) (*RingBuffer[T], error) {
	if err := validateBufferSize(bufferSize); err != nil {
		return nil, err
	}
	ws := nonNilStrategy(waitStrategy)
	seq := newMultiProducerSequencer(bufferSize, ws)
	r, err := newRingBuffer(factory, bufferSize, ws, seq, opts)
	if err != nil {
		return nil, err
	}
	r.logConstruction(MultiProducer)
	return r, nil
}

func nonNilStrategy(ws WaitStrategy) WaitStrategy {
	if ws == nil {
		return NewBlockingWaitStrategy()
	}
	return ws
}

// Next claims the next sequence, blocking until the slowest gating
// consumer leaves room for it.
func (r *RingBuffer[T]) Next() (int64, error) {
	return r.NextN(1)
}

// NextN claims the next n contiguous sequences, blocking until the
// slowest gating consumer leaves room for them.
func (r *RingBuffer[T]) NextN(n int64) (int64, error) {
	seq, err := r.seq.NextN(n)
	if err == nil {
		for i := int64(0); i < n; i++ {
			r.metrics.recordClaimed()
		}
	}
	return seq, err
}

// TryNext attempts to claim n sequences without blocking, returning
// ErrInsufficientCapacity if that would require waiting on a consumer.
func (r *RingBuffer[T]) TryNext(n int64) (int64, error) {
	seq, err := r.seq.TryNext(n)
	if err != nil {
		if errors.Is(err, ErrInsufficientCapacity) {
			r.metrics.recordInsufficientCapacity()
			r.logInsufficientCapacity(n)
		}
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		r.metrics.recordClaimed()
	}
	return seq, nil
}

// HasAvailableCapacity reports whether n sequences could be claimed right
// now without blocking.
func (r *RingBuffer[T]) HasAvailableCapacity(n int64) bool {
	return r.seq.HasAvailableCapacity(n)
}

// Claim administratively seeds the ring's claim sequence. Only legal
// before any gating sequence has been attached, and only supported on a
// single-producer ring: a multi-producer ring would also need to
// back-fill its availability buffer for the seeded sequence, which Claim
// does not attempt.
func (r *RingBuffer[T]) Claim(sequence int64) error {
	return r.seq.Claim(sequence)
}

func (r *RingBuffer[T]) publish(sequence int64) {
	r.seq.Publish(sequence)
	r.metrics.recordPublished()
}

// Publish announces that sequence, previously returned by Next/NextN/
// TryNext, is ready to be read.
func (r *RingBuffer[T]) Publish(sequence int64) {
	r.publish(sequence)
}

// PublishRange announces every sequence in [lo, hi].
func (r *RingBuffer[T]) PublishRange(lo, hi int64) {
	r.seq.PublishRange(lo, hi)
	for s := lo; s <= hi; s++ {
		r.metrics.recordPublished()
	}
}

// Get waits for sequence to become available and returns a pointer to its
// slot. Safe to call from any consumer goroutine once it has confirmed,
// via a SequenceBarrier, that sequence has been published; calling it
// earlier simply spins until the producer catches up.
func (r *RingBuffer[T]) Get(sequence int64) *T {
	for !r.seq.IsAvailable(sequence) {
		runtime.Gosched()
	}
	return &r.slots[sequence&r.mask]
}

// GetPreallocated returns a pointer to the slot at sequence without
// waiting for publication. Producer-only: callers must already hold a
// valid claim on sequence.
func (r *RingBuffer[T]) GetPreallocated(sequence int64) *T {
	return &r.slots[sequence&r.mask]
}

// PublishEvent claims the next sequence, invokes t against its slot, and
// publishes it. The sequence is published even if t panics; see
// EventTranslator and TranslatorFaultError.
func (r *RingBuffer[T]) PublishEvent(t EventTranslator[T], args ...any) (int64, error) {
	seq, err := r.Next()
	if err != nil {
		return 0, err
	}
	return seq, r.invokeTranslator(t, seq, args...)
}

// TryPublishEvent is the non-blocking counterpart of PublishEvent: it
// claims requiredCapacity sequences via TryNext and only invokes t on
// success.
func (r *RingBuffer[T]) TryPublishEvent(t EventTranslator[T], requiredCapacity int64, args ...any) (int64, error) {
	seq, err := r.TryNext(requiredCapacity)
	if err != nil {
		return 0, err
	}
	return seq, r.invokeTranslator(t, seq, args...)
}

// AddGatingSequences attaches consumer sequences that will throttle
// future claims. Newly added sequences are seeded to the current cursor
// so they never retroactively block a producer.
func (r *RingBuffer[T]) AddGatingSequences(seqs ...*Sequence) {
	r.seq.AddGatingSequences(seqs...)
	r.logGatingAdded(len(seqs))
}

// RemoveGatingSequence detaches a previously-added gating sequence,
// reporting whether it was present.
func (r *RingBuffer[T]) RemoveGatingSequence(seq *Sequence) bool {
	removed := r.seq.RemoveGatingSequence(seq)
	r.logGatingRemoved(removed)
	return removed
}

// NewBarrier returns a SequenceBarrier over this ring's cursor. deps, if
// given, are upstream consumer sequences this barrier's consumer must
// never outrun.
func (r *RingBuffer[T]) NewBarrier(deps ...*Sequence) *SequenceBarrier {
	b := newSequenceBarrier(r.seq.Cursor(), r.waitStrategy, r.seq, deps)
	return r.instrumentBarrier(b)
}

func (r *RingBuffer[T]) instrumentBarrier(b *SequenceBarrier) *SequenceBarrier {
	inner := b.waitStrategy
	metrics := r.metrics
	b.waitStrategy = waitStrategyFunc{
		signal: inner.SignalAllWhenBlocking,
		wait: func(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
			start := time.Now()
			available, err := inner.WaitFor(sequence, cursor, dependents, barrier)
			metrics.observeWaitSeconds(time.Since(start).Seconds())
			if err != nil {
				metrics.recordAlert()
			}
			return available, err
		},
	}
	return b
}

// Cursor returns the ring's own sequence: highest published for a
// single-producer ring, highest claimed for a multi-producer ring (see
// ProducerType and sequencer.Cursor).
func (r *RingBuffer[T]) Cursor() int64 {
	return r.seq.Cursor().Get()
}

// BufferSize returns the fixed slot count this ring was constructed with.
func (r *RingBuffer[T]) BufferSize() int64 {
	return r.bufferSize
}

// ID returns the instance identifier attached to this ring's logs and
// metrics.
func (r *RingBuffer[T]) ID() uuid.UUID {
	return r.id
}

// Collectors returns the Prometheus collectors this ring feeds. The
// caller is responsible for registering them with its own registry; this
// package never does so itself.
func (r *RingBuffer[T]) Collectors() []prometheus.Collector {
	return r.metrics.Collectors()
}

// Drain reads every slot in [from, to] in order and calls fn on each,
// waiting via barrier for availability first. It performs no dispatch,
// retry, or lifecycle management beyond that index walk: consumer
// drivers are expected to build on top of this, not the other way
// around.
func (r *RingBuffer[T]) Drain(barrier *SequenceBarrier, from, to int64, fn func(sequence int64, event *T)) error {
	if _, err := barrier.WaitFor(to); err != nil {
		return err
	}
	for seq := from; seq <= to; seq++ {
		fn(seq, r.Get(seq))
	}
	return nil
}

// waitStrategyFunc adapts a wait function and a signal function to the
// WaitStrategy interface so NewBarrier can wrap a ring's configured
// strategy with a metrics probe. signal is the wrapped strategy's own
// SignalAllWhenBlocking, so SequenceBarrier.Alert still wakes goroutines
// parked inside it.
type waitStrategyFunc struct {
	wait   func(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error)
	signal func()
}

func (f waitStrategyFunc) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
	return f.wait(sequence, cursor, dependents, barrier)
}

func (f waitStrategyFunc) SignalAllWhenBlocking() { f.signal() }
