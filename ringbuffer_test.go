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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRingBuffer_SPSC_BusySpin_InOrder is end-to-end scenario 1: a single
// producer publishes a run of monotonically increasing payloads and a
// single consumer observes every one of them, in order, with no drops.
func TestRingBuffer_SPSC_BusySpin_InOrder(t *testing.T) {
	const total = 1_000_000

	rb, err := NewSingleProducer(func() int64 { return 0 }, 1024, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)
	barrier := rb.NewBarrier()

	done := make(chan struct{})
	go func() {
		defer close(done)
		next := int64(0)
		for next < total {
			available, err := barrier.WaitFor(next)
			require.NoError(t, err)
			for ; next <= available; next++ {
				got := *rb.Get(next)
				require.Equal(t, next, got, "payload mismatch at sequence %d", next)
			}
			consumed.Set(available)
		}
	}()

	for i := int64(0); i < total; i++ {
		seq, err := rb.Next()
		require.NoError(t, err)
		*rb.GetPreallocated(seq) = seq
		rb.Publish(seq)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not drain 1,000,000 events within deadline")
	}

	assert.Equal(t, int64(total-1), rb.Cursor())
	assert.Equal(t, int64(total-1), consumed.Get())
}

// TestRingBuffer_MPSC_Blocking_FourProducers is end-to-end scenario 2: four
// producers each publish a private, monotonically increasing sequence
// number as payload; a single consumer must see exactly
// 4*perProducer events and every producer's own sub-sequence strictly
// increasing.
func TestRingBuffer_MPSC_Blocking_FourProducers(t *testing.T) {
	const producers = 4
	const perProducer = 250_000
	const total = producers * perProducer

	type event struct {
		producer int
		localSeq int64
	}

	rb, err := NewMultiProducer(func() event { return event{} }, 1024, NewBlockingWaitStrategy())
	require.NoError(t, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)
	barrier := rb.NewBarrier()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := int64(0); i < perProducer; i++ {
				seq, err := rb.Next()
				require.NoError(t, err)
				*rb.GetPreallocated(seq) = event{producer: p, localSeq: i}
				rb.Publish(seq)
			}
		}(p)
	}

	var count int64
	lastSeen := make([]int64, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		next := int64(0)
		for atomic.LoadInt64(&count) < total {
			available, err := barrier.WaitFor(next)
			require.NoError(t, err)
			for ; next <= available; next++ {
				ev := *rb.Get(next)
				require.Greater(t, ev.localSeq, lastSeen[ev.producer],
					"producer %d's local sequence went backwards", ev.producer)
				lastSeen[ev.producer] = ev.localSeq
				atomic.AddInt64(&count, 1)
			}
			consumed.Set(available)
		}
	}()

	wg.Wait()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("consumer did not drain all producer events within deadline")
	}

	assert.Equal(t, int64(total), atomic.LoadInt64(&count))
	for p := 0; p < producers; p++ {
		assert.Equal(t, int64(perProducer-1), lastSeen[p])
	}
}

// TestRingBuffer_GatingBackpressure_SlowConsumer is end-to-end scenario 3:
// with a tiny ring and a consumer that never advances its gating
// sequence, the overwhelming majority of TryNext attempts must report
// ErrInsufficientCapacity rather than overwriting unread slots.
func TestRingBuffer_GatingBackpressure_SlowConsumer(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 4, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)

	var insufficient int
	const attempts = 20
	for i := 0; i < attempts; i++ {
		_, err := rb.TryNext(1)
		if errors.Is(err, ErrInsufficientCapacity) {
			insufficient++
		}
	}

	assert.GreaterOrEqual(t, insufficient, 16,
		"expected a slow consumer to back-pressure at least 16/%d claims, got %d", attempts, insufficient)
}

// TestRingBuffer_DependencyPipeline_TwoStages is end-to-end scenario 4: a
// downstream consumer barrier declares an upstream consumer sequence as a
// dependency and must never observe a sequence the upstream stage hasn't
// processed yet.
func TestRingBuffer_DependencyPipeline_TwoStages(t *testing.T) {
	const total = 5000

	rb, err := NewSingleProducer(func() int64 { return 0 }, 256, NewYieldingWaitStrategy())
	require.NoError(t, err)

	stageA := NewSequence(InitialSequenceValue)
	stageB := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(stageB)

	barrierA := rb.NewBarrier()
	barrierB := rb.NewBarrier(stageA)

	var violation atomic.Bool

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		next := int64(0)
		for next < total {
			available, err := barrierA.WaitFor(next)
			require.NoError(t, err)
			for ; next <= available && next < total; next++ {
				stageA.Set(next)
			}
		}
	}()
	go func() {
		defer wg.Done()
		next := int64(0)
		for next < total {
			available, err := barrierB.WaitFor(next)
			require.NoError(t, err)
			for ; next <= available && next < total; next++ {
				if next > stageA.Get() {
					violation.Store(true)
				}
				stageB.Set(next)
			}
		}
	}()

	for i := int64(0); i < total; i++ {
		seq, err := rb.Next()
		require.NoError(t, err)
		rb.Publish(seq)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not drain within deadline")
	}

	assert.False(t, violation.Load(), "downstream stage observed a sequence ahead of upstream")
}

// TestRingBuffer_AlertDuringWait_Unblocks is end-to-end scenario 5: a
// goroutine parked in WaitFor on an empty ring must unblock with ErrAlert
// promptly once another goroutine calls Alert.
func TestRingBuffer_AlertDuringWait_Unblocks(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBlockingWaitStrategy())
	require.NoError(t, err)

	barrier := rb.NewBarrier()

	errCh := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := barrier.WaitFor(0)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	barrier.Alert()

	select {
	case err := <-errCh:
		elapsed := time.Since(start)
		assert.ErrorIs(t, err, ErrAlert)
		assert.Less(t, elapsed, 100*time.Millisecond,
			"WaitFor took %s to unblock after Alert", elapsed)
	case <-time.After(time.Second):
		t.Fatal("WaitFor never unblocked after Alert")
	}
}

// TestRingBuffer_RejectedConfiguration is end-to-end scenario 6: bufferSize
// must be a positive power of two, or construction fails with
// ErrInvalidConfiguration.
func TestRingBuffer_RejectedConfiguration(t *testing.T) {
	factory := func() int { return 0 }

	_, err := NewSingleProducer(factory, 7, NewBlockingWaitStrategy())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewSingleProducer(factory, 0, NewBlockingWaitStrategy())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	rb, err := NewSingleProducer(factory, 8, NewBlockingWaitStrategy())
	require.NoError(t, err)
	assert.Equal(t, int64(8), rb.BufferSize())

	_, err = NewMultiProducer(factory, 3, NewBlockingWaitStrategy())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRingBuffer_NilFactoryRejected(t *testing.T) {
	_, err := NewSingleProducer[int](nil, 8, NewBlockingWaitStrategy())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRingBuffer_NilWaitStrategyDefaultsToBlocking(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, nil)
	require.NoError(t, err)

	seq, err := rb.Next()
	require.NoError(t, err)
	rb.Publish(seq)
	assert.Equal(t, int64(0), rb.Cursor())
}

func TestRingBuffer_PublishEvent_TranslatorMutatesSlot(t *testing.T) {
	rb, err := NewSingleProducer(func() string { return "" }, 8, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	translator := func(event *string, sequence int64, args ...any) {
		*event = args[0].(string)
	}

	seq, err := rb.PublishEvent(translator, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", *rb.GetPreallocated(seq))
	assert.True(t, rb.seq.IsAvailable(seq))
}

func TestRingBuffer_PublishEvent_TranslatorPanicStillPublishes(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	translator := func(event *int, sequence int64, args ...any) {
		panic("boom")
	}

	seq, err := rb.PublishEvent(translator)
	var faultErr *TranslatorFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, seq, faultErr.Sequence)
	assert.True(t, rb.seq.IsAvailable(seq), "sequence must still be published after a translator panic")
}

func TestRingBuffer_TryPublishEvent_InsufficientCapacity(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 2, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)

	noop := func(event *int, sequence int64, args ...any) {}

	_, err = rb.TryPublishEvent(noop, 1)
	require.NoError(t, err)
	_, err = rb.TryPublishEvent(noop, 1)
	require.NoError(t, err)

	_, err = rb.TryPublishEvent(noop, 1)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
}

func TestRingBuffer_Claim(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	require.NoError(t, rb.Claim(3))
	assert.False(t, rb.seq.IsAvailable(3))

	seq, err := rb.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)

	rb.AddGatingSequences(NewSequence(InitialSequenceValue))
	assert.Error(t, rb.Claim(10))
}

func TestRingBuffer_AddRemoveGatingSequence(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	s := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(s)
	assert.True(t, rb.RemoveGatingSequence(s))
	assert.False(t, rb.RemoveGatingSequence(s))
}

func TestRingBuffer_Drain(t *testing.T) {
	rb, err := NewSingleProducer(func() int64 { return 0 }, 16, NewBusySpinWaitStrategy())
	require.NoError(t, err)

	for i := int64(0); i < 10; i++ {
		seq, err := rb.Next()
		require.NoError(t, err)
		*rb.GetPreallocated(seq) = seq
		rb.Publish(seq)
	}

	barrier := rb.NewBarrier()
	var got []int64
	err = rb.Drain(barrier, 0, 9, func(sequence int64, event *int64) {
		got = append(got, *event)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestRingBuffer_CollectorsRegistrable(t *testing.T) {
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBusySpinWaitStrategy(), WithMetricsEnabled(true))
	require.NoError(t, err)
	assert.Len(t, rb.Collectors(), 5)
}

func TestRingBuffer_WithIDOverride(t *testing.T) {
	id := uuid.New()
	rb, err := NewSingleProducer(func() int { return 0 }, 8, NewBusySpinWaitStrategy(), WithID(id))
	require.NoError(t, err)
	assert.Equal(t, id, rb.ID())
}

func BenchmarkRingBuffer_SingleProducer_BusySpin(b *testing.B) {
	rb, err := NewSingleProducer(func() int64 { return 0 }, 65536, NewBusySpinWaitStrategy())
	require.NoError(b, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)
	barrier := rb.NewBarrier()

	stop := make(chan struct{})
	go func() {
		next := int64(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			available, err := barrier.WaitFor(next)
			if err != nil {
				return
			}
			next = available + 1
			consumed.Set(available)
		}
	}()
	defer close(stop)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, _ := rb.Next()
		*rb.GetPreallocated(seq) = seq
		rb.Publish(seq)
	}
}

func BenchmarkRingBuffer_MultiProducer_Yielding(b *testing.B) {
	rb, err := NewMultiProducer(func() int64 { return 0 }, 65536, NewYieldingWaitStrategy())
	require.NoError(b, err)

	consumed := NewSequence(InitialSequenceValue)
	rb.AddGatingSequences(consumed)
	barrier := rb.NewBarrier()

	stop := make(chan struct{})
	go func() {
		next := int64(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			available, err := barrier.WaitFor(next)
			if err != nil {
				return
			}
			next = available + 1
			consumed.Set(available)
		}
	}()
	defer close(stop)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			seq, _ := rb.Next()
			rb.Publish(seq)
		}
	})
}
