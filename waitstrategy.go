// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import (
	"runtime"
	"sync"
	"time"
)

// WaitStrategy is the policy a consumer uses to wait for a target sequence
// to become available, and the channel through which publishers wake
// waiting consumers back up.
//
// WaitFor blocks until cursor is at least sequence, then resolves any
// declared dependent sequences down to the same floor, and returns the
// resulting "available" sequence. Implementations must poll
// barrier.CheckAlert and return ErrAlert promptly once Alert has been
// raised.
type WaitStrategy interface {
	WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error)
	SignalAllWhenBlocking()
}

// spinForDependents is the tail every WaitStrategy runs once cursor has
// reached sequence: dependents (when declared) may still lag behind the
// raw cursor, so this spins briefly until they catch up. With no
// dependents it degenerates to returning cursor's own value immediately.
func spinForDependents(barrier *SequenceBarrier, dependents []*Sequence, cursor *Sequence, sequence int64) (int64, error) {
	for {
		if err := barrier.CheckAlert(); err != nil {
			return -1, err
		}
		available := minimumSequence(dependents, cursor.Get())
		if available >= sequence {
			return available, nil
		}
		runtime.Gosched()
	}
}

// BlockingWaitStrategy parks on a mutex/condition-variable pair until a
// publisher signals. Lowest CPU usage, highest wake-up latency of the
// recognized strategies.
type BlockingWaitStrategy struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewBlockingWaitStrategy returns a ready-to-use BlockingWaitStrategy.
func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	w := &BlockingWaitStrategy{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *BlockingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
	if cursor.Get() < sequence {
		w.mu.Lock()
		for cursor.Get() < sequence {
			if err := barrier.CheckAlert(); err != nil {
				w.mu.Unlock()
				return -1, err
			}
			w.cond.Wait()
		}
		w.mu.Unlock()
	}
	return spinForDependents(barrier, dependents, cursor, sequence)
}

// SignalAllWhenBlocking wakes every goroutine parked in WaitFor.
func (w *BlockingWaitStrategy) SignalAllWhenBlocking() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Sleeping wait tuning constants: spin for sleepSpinTries iterations, then
// yield for sleepYieldTries iterations, then park with exponentially
// growing sleeps bounded by sleepMaxDelay.
const (
	sleepSpinTries  = 100
	sleepYieldTries = 100
	sleepMinDelay   = time.Microsecond
	sleepMaxDelay   = time.Millisecond
)

// SleepingWaitStrategy busy-spins briefly, then yields, then parks for
// exponentially increasing durations. A middle ground between BusySpin's
// CPU cost and Blocking's wake-up latency; suited to producers that
// publish in bursts with idle gaps in between.
type SleepingWaitStrategy struct{}

// NewSleepingWaitStrategy returns a ready-to-use SleepingWaitStrategy.
func NewSleepingWaitStrategy() *SleepingWaitStrategy {
	return &SleepingWaitStrategy{}
}

func (w *SleepingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
	counter := sleepSpinTries + sleepYieldTries
	delay := sleepMinDelay
	for cursor.Get() < sequence {
		if err := barrier.CheckAlert(); err != nil {
			return -1, err
		}
		switch {
		case counter > sleepYieldTries:
			counter--
		case counter > 0:
			counter--
			runtime.Gosched()
		default:
			time.Sleep(delay)
			if delay *= 2; delay > sleepMaxDelay {
				delay = sleepMaxDelay
			}
		}
	}
	return spinForDependents(barrier, dependents, cursor, sequence)
}

// SignalAllWhenBlocking is a no-op: sleeping consumers wake themselves up
// on their own schedule rather than being signalled.
func (w *SleepingWaitStrategy) SignalAllWhenBlocking() {}

// yieldSpinTries is how many iterations YieldingWaitStrategy spins before
// it starts calling runtime.Gosched on every iteration.
const yieldSpinTries = 100

// YieldingWaitStrategy spins briefly, then yields the processor for the
// remainder of the wait. Lower latency than Sleeping, less CPU-hungry
// than BusySpin.
type YieldingWaitStrategy struct{}

// NewYieldingWaitStrategy returns a ready-to-use YieldingWaitStrategy.
func NewYieldingWaitStrategy() *YieldingWaitStrategy {
	return &YieldingWaitStrategy{}
}

func (w *YieldingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
	counter := yieldSpinTries
	for cursor.Get() < sequence {
		if err := barrier.CheckAlert(); err != nil {
			return -1, err
		}
		if counter == 0 {
			runtime.Gosched()
		} else {
			counter--
		}
	}
	return spinForDependents(barrier, dependents, cursor, sequence)
}

// SignalAllWhenBlocking is a no-op: yielding consumers are never parked.
func (w *YieldingWaitStrategy) SignalAllWhenBlocking() {}

// BusySpinWaitStrategy spins tightly with no yield at all. Lowest
// achievable latency, at the cost of pinning one CPU core per consumer.
// Only appropriate when consumer goroutines can be given dedicated cores.
type BusySpinWaitStrategy struct{}

// NewBusySpinWaitStrategy returns a ready-to-use BusySpinWaitStrategy.
func NewBusySpinWaitStrategy() *BusySpinWaitStrategy {
	return &BusySpinWaitStrategy{}
}

func (w *BusySpinWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, barrier *SequenceBarrier) (int64, error) {
	for cursor.Get() < sequence {
		if err := barrier.CheckAlert(); err != nil {
			return -1, err
		}
	}
	return spinForDependents(barrier, dependents, cursor, sequence)
}

// SignalAllWhenBlocking is a no-op: busy-spinning consumers never park.
func (w *BusySpinWaitStrategy) SignalAllWhenBlocking() {}
