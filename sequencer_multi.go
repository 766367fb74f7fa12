// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import (
	"math/bits"
	"sync/atomic"
	"time"
)

// multiProducerSequencer implements sequencer for the multi-producer
// case. cursor tracks the highest *claimed* sequence, not the highest
// published one: two producers can claim sequences 5 and 6 in either
// order and commit them in either order, so availability of a given
// sequence is tracked independently in availableBuffer, one round marker
// per slot.
type multiProducerSequencer struct {
	bufferSize   int64
	indexMask    int64
	indexShift   uint
	waitStrategy WaitStrategy
	gating       *gatingGroup

	cursor              *Sequence
	gatingSequenceCache *Sequence

	availableBuffer []atomic.Int32
}

func newMultiProducerSequencer(bufferSize int64, ws WaitStrategy) *multiProducerSequencer {
	s := &multiProducerSequencer{
		bufferSize:          bufferSize,
		indexMask:           bufferSize - 1,
		indexShift:          uint(bits.TrailingZeros64(uint64(bufferSize))),
		waitStrategy:        ws,
		gating:              newGatingGroup(),
		cursor:              NewSequence(InitialSequenceValue),
		gatingSequenceCache: NewSequence(InitialSequenceValue),
		availableBuffer:     make([]atomic.Int32, bufferSize),
	}
	for i := range s.availableBuffer {
		s.availableBuffer[i].Store(-1)
	}
	return s
}

func (s *multiProducerSequencer) Cursor() *Sequence { return s.cursor }

func (s *multiProducerSequencer) NextN(n int64) (int64, error) {
	if n < 1 {
		return 0, illegalStatef("n must be >= 1, got %d", n)
	}
	for {
		current := s.cursor.Get()
		next := current + n
		wrapPoint := next - s.bufferSize
		cachedGate := s.gatingSequenceCache.Get()

		if wrapPoint > cachedGate || cachedGate > current {
			gatingSequence := minimumSequence(s.gating.sequences(), current)
			if wrapPoint > gatingSequence {
				time.Sleep(claimParkNanos)
				continue
			}
			s.gatingSequenceCache.Set(gatingSequence)
			continue
		}

		if s.cursor.CompareAndSwap(current, next) {
			return next, nil
		}
	}
}

func (s *multiProducerSequencer) TryNext(n int64) (int64, error) {
	if n < 1 {
		return 0, illegalStatef("n must be >= 1, got %d", n)
	}
	for {
		current := s.cursor.Get()
		next := current + n
		wrapPoint := next - s.bufferSize

		gatingSequence := minimumSequence(s.gating.sequences(), current)
		if wrapPoint > gatingSequence {
			return 0, ErrInsufficientCapacity
		}
		if s.cursor.CompareAndSwap(current, next) {
			return next, nil
		}
		// Lost the CAS race to a concurrent producer; gating is
		// rechecked against the fresh cursor on the next loop
		// iteration rather than failing spuriously, since the
		// capacity picture has changed.
	}
}

func (s *multiProducerSequencer) HasAvailableCapacity(n int64) bool {
	current := s.cursor.Get()
	next := current + n
	wrapPoint := next - s.bufferSize
	gatingSequence := minimumSequence(s.gating.sequences(), current)
	return wrapPoint <= gatingSequence
}

// Claim is not supported on multi-producer rings: seeding an arbitrary
// sequence would also require back-filling every slot's round marker in
// availableBuffer up to that point, which has no well-defined value for
// slots no producer ever claimed. Rather than leave the buffer
// inconsistent, this always fails fast with ErrIllegalState.
func (s *multiProducerSequencer) Claim(sequence int64) error {
	return illegalStatef("claim is not supported on a multi-producer sequencer")
}

func (s *multiProducerSequencer) AddGatingSequences(seqs ...*Sequence) {
	s.gating.add(s.cursor.Get, seqs...)
}

func (s *multiProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}

func (s *multiProducerSequencer) round(sequence int64) int32 {
	return int32(sequence >> s.indexShift)
}

func (s *multiProducerSequencer) setAvailable(sequence int64) {
	idx := sequence & s.indexMask
	s.availableBuffer[idx].Store(s.round(sequence))
}

func (s *multiProducerSequencer) Publish(sequence int64) {
	s.setAvailable(sequence)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *multiProducerSequencer) PublishRange(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		s.setAvailable(seq)
	}
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *multiProducerSequencer) IsAvailable(sequence int64) bool {
	idx := sequence & s.indexMask
	return s.availableBuffer[idx].Load() == s.round(sequence)
}

func (s *multiProducerSequencer) HighestPublishedSequence(lowerBound, availableSequence int64) int64 {
	for seq := lowerBound; seq <= availableSequence; seq++ {
		if !s.IsAvailable(seq) {
			return seq - 1
		}
	}
	return availableSequence
}
