// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "fmt"

// EventTranslator writes a producer's data into a preallocated slot.
// event points directly at the ring's slot, so writes through it are
// visible to consumers once the sequence is published; sequence is the
// sequence being claimed, and args are passed through unchanged from the
// PublishEvent/TryPublishEvent call site to avoid a closure allocation
// per publish.
//
// EventTranslator bodies themselves are out of scope for this package:
// this type only describes the callback shape the RingBuffer invokes.
type EventTranslator[T any] func(event *T, sequence int64, args ...any)

// invokeTranslator runs t against the slot at sequence and publishes the
// sequence on every exit path, including a panicking translator. Not
// publishing would leave every consumer parked on an unreachable
// sequence forever; see TranslatorFaultError.
func (r *RingBuffer[T]) invokeTranslator(t EventTranslator[T], sequence int64, args ...any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &TranslatorFaultError{Sequence: sequence, Err: fmt.Errorf("%v", rec)}
		}
		r.publish(sequence)
		if err != nil {
			r.logTranslatorFault(err)
		}
	}()
	t(r.GetPreallocated(sequence), sequence, args...)
	return nil
}
