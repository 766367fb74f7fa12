// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "sync/atomic"

// publisher is the subset of sequencer a SequenceBarrier needs to resolve
// multi-producer availability gaps once its WaitStrategy has returned.
type publisher interface {
	IsAvailable(sequence int64) bool
	HighestPublishedSequence(lowerBound, availableSequence int64) int64
}

// SequenceBarrier is the consumer-facing view of a ring: it combines
// waiting for the producer cursor to advance with waiting for any
// declared upstream dependencies, and exposes the sole cancellation
// channel in the core, Alert.
type SequenceBarrier struct {
	cursor       *Sequence
	dependents   []*Sequence
	waitStrategy WaitStrategy
	publisher    publisher
	alerted      atomic.Bool
}

func newSequenceBarrier(cursor *Sequence, waitStrategy WaitStrategy, pub publisher, dependents []*Sequence) *SequenceBarrier {
	return &SequenceBarrier{
		cursor:       cursor,
		dependents:   dependents,
		waitStrategy: waitStrategy,
		publisher:    pub,
	}
}

// WaitFor blocks until sequence is available or the barrier is alerted.
//
// When the barrier declares no dependencies, the returned sequence is the
// highest one that is contiguously available from the ring's own
// publisher (so a multi-producer ring's still-in-flight gaps never leak
// through). When the barrier declares dependencies, the returned sequence
// is capped at the slowest dependency, since those upstream consumers
// have already performed that contiguity resolution themselves.
func (b *SequenceBarrier) WaitFor(sequence int64) (int64, error) {
	if err := b.CheckAlert(); err != nil {
		return -1, err
	}

	available, err := b.waitStrategy.WaitFor(sequence, b.cursor, b.dependents, b)
	if err != nil {
		return available, err
	}
	if available < sequence {
		return available, nil
	}
	if len(b.dependents) == 0 {
		return b.publisher.HighestPublishedSequence(sequence, available), nil
	}
	return available, nil
}

// Alert raises the cancellation flag and wakes every goroutine currently
// parked in WaitFor so it can observe the alert promptly.
func (b *SequenceBarrier) Alert() {
	b.alerted.Store(true)
	b.waitStrategy.SignalAllWhenBlocking()
}

// ClearAlert lowers the cancellation flag, allowing WaitFor to resume
// normal operation.
func (b *SequenceBarrier) ClearAlert() {
	b.alerted.Store(false)
}

// CheckAlert returns ErrAlert if Alert has been called since the last
// ClearAlert, and nil otherwise.
func (b *SequenceBarrier) CheckAlert() error {
	if b.alerted.Load() {
		return ErrAlert
	}
	return nil
}
