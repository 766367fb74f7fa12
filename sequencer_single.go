// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "time"

// singleProducerSequencer implements sequencer for the single-producer
// case. nextValue and cachedGatingSequence are plain int64s guarded by
// single-writer discipline: only the one producer goroutine permitted by
// NewSingleProducer may ever call its methods. cursor is the only field
// consumers read, so it alone needs to be an atomic Sequence.
type singleProducerSequencer struct {
	bufferSize   int64
	waitStrategy WaitStrategy
	gating       *gatingGroup

	cursor *Sequence

	nextValue            int64
	cachedGatingSequence int64
}

func newSingleProducerSequencer(bufferSize int64, ws WaitStrategy) *singleProducerSequencer {
	return &singleProducerSequencer{
		bufferSize:           bufferSize,
		waitStrategy:         ws,
		gating:               newGatingGroup(),
		cursor:               NewSequence(InitialSequenceValue),
		nextValue:            InitialSequenceValue,
		cachedGatingSequence: InitialSequenceValue,
	}
}

func (s *singleProducerSequencer) Cursor() *Sequence { return s.cursor }

func (s *singleProducerSequencer) NextN(n int64) (int64, error) {
	if n < 1 {
		return 0, illegalStatef("n must be >= 1, got %d", n)
	}

	next := s.nextValue + n
	wrapPoint := next - s.bufferSize

	if wrapPoint > s.cachedGatingSequence || s.cachedGatingSequence > s.nextValue {
		for {
			gatingSequence := minimumSequence(s.gating.sequences(), s.cursor.Get())
			if wrapPoint <= gatingSequence {
				s.cachedGatingSequence = gatingSequence
				break
			}
			time.Sleep(claimParkNanos)
		}
	}

	s.nextValue = next
	return next, nil
}

func (s *singleProducerSequencer) TryNext(n int64) (int64, error) {
	if n < 1 {
		return 0, illegalStatef("n must be >= 1, got %d", n)
	}
	if !s.hasAvailableCapacity(n, true) {
		return 0, ErrInsufficientCapacity
	}
	next := s.nextValue + n
	s.nextValue = next
	return next, nil
}

func (s *singleProducerSequencer) HasAvailableCapacity(n int64) bool {
	return s.hasAvailableCapacity(n, false)
}

func (s *singleProducerSequencer) hasAvailableCapacity(n int64, updateCache bool) bool {
	next := s.nextValue + n
	wrapPoint := next - s.bufferSize

	if wrapPoint > s.cachedGatingSequence || s.cachedGatingSequence > s.nextValue {
		gatingSequence := minimumSequence(s.gating.sequences(), s.cursor.Get())
		if updateCache {
			s.cachedGatingSequence = gatingSequence
		}
		if wrapPoint > gatingSequence {
			return false
		}
	}
	return true
}

// Claim administratively seeds nextValue, the producer's own bookkeeping
// of the last sequence handed out. It does not touch the cursor, so
// nothing becomes visible to consumers until the next Publish. Only
// legal before any consumer has attached a gating sequence. Claim is
// single-producer-only: a multi-producer ring would also need to
// back-fill its availability buffer to match the seeded sequence, which
// has no well-defined value for slots no producer ever claimed.
func (s *singleProducerSequencer) Claim(sequence int64) error {
	if len(s.gating.sequences()) != 0 {
		return illegalStatef("claim called after gating sequences were attached")
	}
	s.nextValue = sequence
	return nil
}

func (s *singleProducerSequencer) AddGatingSequences(seqs ...*Sequence) {
	s.gating.add(s.cursor.Get, seqs...)
}

func (s *singleProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}

// Publish advances the cursor directly. Because only one goroutine ever
// claims sequences, cursor >= s already implies slot s was written, so no
// separate availability buffer is needed.
func (s *singleProducerSequencer) Publish(sequence int64) {
	s.cursor.Set(sequence)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *singleProducerSequencer) PublishRange(lo, hi int64) {
	s.Publish(hi)
}

// IsAvailable is a no-op check under the single-producer contract: if the
// cursor has reached sequence, the slot was necessarily written first.
func (s *singleProducerSequencer) IsAvailable(sequence int64) bool {
	return sequence <= s.cursor.Get()
}

func (s *singleProducerSequencer) HighestPublishedSequence(lowerBound, availableSequence int64) int64 {
	return availableSequence
}
