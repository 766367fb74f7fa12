// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "go.uber.org/zap"

// logConstruction logs ring setup once, at Info level, mirroring how
// application bootstrap code logs its own wiring.
func (r *RingBuffer[T]) logConstruction(producerType ProducerType) {
	r.logger.Info("ring buffer constructed",
		zap.Stringer("ring_id", r.id),
		zap.Int64("buffer_size", r.bufferSize),
		zap.Stringer("producer_type", producerType),
	)
}

func (r *RingBuffer[T]) logGatingAdded(n int) {
	r.logger.Info("gating sequences added",
		zap.Stringer("ring_id", r.id),
		zap.Int("count", n),
	)
}

func (r *RingBuffer[T]) logGatingRemoved(removed bool) {
	r.logger.Info("gating sequence removed",
		zap.Stringer("ring_id", r.id),
		zap.Bool("removed", removed),
	)
}

func (r *RingBuffer[T]) logInsufficientCapacity(n int64) {
	r.logger.Warn("insufficient capacity",
		zap.Stringer("ring_id", r.id),
		zap.Int64("requested", n),
	)
}

func (r *RingBuffer[T]) logTranslatorFault(err error) {
	r.logger.Error("translator fault",
		zap.Stringer("ring_id", r.id),
		zap.Error(err),
	)
}
