// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "time"

// ProducerType selects the claim protocol a RingBuffer uses and is fixed
// for the life of the ring.
type ProducerType int

const (
	// SingleProducer requires the caller to guarantee exactly one
	// goroutine ever calls the ring's claim methods.
	SingleProducer ProducerType = iota
	// MultiProducer tolerates any number of concurrent producer
	// goroutines, coordinating claims with CAS.
	MultiProducer
)

func (p ProducerType) String() string {
	switch p {
	case SingleProducer:
		return "single-producer"
	case MultiProducer:
		return "multi-producer"
	default:
		return "unknown-producer"
	}
}

// claimParkNanos is the pause between gating re-checks while a claim
// spins waiting for the slowest consumer to advance. It trades a little
// latency for not burning a full core busy-polling an atomic load.
const claimParkNanos = 250 * time.Nanosecond

// sequencer is the combined claim/publish protocol implemented by both
// producer modes. Sequencer and Publisher concerns are modeled as one
// interface because both single- and multi-producer implementations keep
// their claim and publish state together (the multi-producer availability
// buffer, in particular, belongs next to the cursor it publishes
// against).
type sequencer interface {
	// NextN claims n contiguous sequences, blocking (spinning) until the
	// gating sequences allow it.
	NextN(n int64) (int64, error)
	// TryNext attempts to claim n sequences without blocking.
	TryNext(n int64) (int64, error)
	// HasAvailableCapacity reports whether n sequences could be claimed
	// right now without blocking.
	HasAvailableCapacity(n int64) bool
	// Claim administratively seeds the sequencer's claim cursor. Only
	// legal before any gating sequence has been attached.
	Claim(sequence int64) error
	// Cursor exposes the sequencer's own Sequence, whose meaning depends
	// on producer mode (see ringex.ProducerType).
	Cursor() *Sequence
	// AddGatingSequences attaches consumer sequences that throttle future
	// claims.
	AddGatingSequences(seqs ...*Sequence)
	// RemoveGatingSequence detaches a previously-added gating sequence.
	RemoveGatingSequence(seq *Sequence) bool

	// Publish announces that sequence is ready to be read.
	Publish(sequence int64)
	// PublishRange announces every sequence in [lo, hi].
	PublishRange(lo, hi int64)
	// IsAvailable reports whether sequence has been published.
	IsAvailable(sequence int64) bool
	// HighestPublishedSequence scans [lowerBound, availableSequence] and
	// returns the highest sequence such that every sequence in the range
	// is itself available (no gaps).
	HighestPublishedSequence(lowerBound, availableSequence int64) int64
}
