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
	"fmt"
)

// Sentinel errors for the core's error taxonomy. Callers should use
// errors.Is against these rather than comparing error values directly,
// since ErrTranslatorFault is always wrapped with call-specific context.
var (
	// ErrInvalidConfiguration is returned at construction time when
	// bufferSize is not a positive power of two.
	ErrInvalidConfiguration = errors.New("ringex: invalid configuration")

	// ErrInsufficientCapacity is returned by TryNext/TryPublishEvent when
	// a claim would have to block to respect the gating sequences.
	ErrInsufficientCapacity = errors.New("ringex: insufficient capacity")

	// ErrAlert is raised to unblock a goroutine parked in
	// SequenceBarrier.WaitFor after SequenceBarrier.Alert is called.
	ErrAlert = errors.New("ringex: alerted")

	// ErrIllegalState is returned when a caller misuses the claim API,
	// e.g. calling Claim after gating sequences are already attached.
	ErrIllegalState = errors.New("ringex: illegal state")

	// ErrTranslatorFault marks a failure inside a user-supplied
	// EventTranslator. The underlying sequence is still published; see
	// TranslatorFaultError for the offending sequence.
	ErrTranslatorFault = errors.New("ringex: translator fault")
)

// TranslatorFaultError wraps a panic or error recovered from an
// EventTranslator. The slot at Sequence is still published once this
// error is produced: not publishing would leave every consumer blocked on
// an uncommittable sequence forever, which is worse than delivering a
// partially-written event and letting the caller encode the fault in the
// payload.
type TranslatorFaultError struct {
	Sequence int64
	Err      error
}

func (e *TranslatorFaultError) Error() string {
	return fmt.Sprintf("ringex: translator fault at sequence %d: %v", e.Sequence, e.Err)
}

func (e *TranslatorFaultError) Unwrap() error {
	return errors.Join(ErrTranslatorFault, e.Err)
}

func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func illegalStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalState, fmt.Sprintf(format, args...))
}
