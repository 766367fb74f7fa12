// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import "sync/atomic"

// gatingGroup holds an immutable, atomically-swapped snapshot of the
// Sequences throttling a producer. Readers (producers deciding whether
// they may claim a sequence) take a stable snapshot with a single atomic
// load and never block. Writers (AddGatingSequences/RemoveGatingSequence,
// both rare, administrative calls) install a new snapshot with a CAS loop.
type gatingGroup struct {
	snapshot atomic.Pointer[[]*Sequence]
}

func newGatingGroup() *gatingGroup {
	g := &gatingGroup{}
	empty := []*Sequence{}
	g.snapshot.Store(&empty)
	return g
}

// sequences returns the current snapshot. The returned slice must be
// treated as read-only: it may be shared with concurrent readers.
func (g *gatingGroup) sequences() []*Sequence {
	return *g.snapshot.Load()
}

// add installs seqs into the group, seeding each one to cursorValue so a
// newly-attached consumer never retroactively throttles a producer that
// has already claimed past it. The two-phase seed (once before the CAS,
// once after it succeeds) closes the window where the cursor advances
// between the snapshot read and the install.
func (g *gatingGroup) add(cursorValue func() int64, seqs ...*Sequence) {
	if len(seqs) == 0 {
		return
	}
	for {
		old := g.snapshot.Load()
		cur := cursorValue()
		for _, s := range seqs {
			s.Set(cur)
		}
		merged := make([]*Sequence, 0, len(*old)+len(seqs))
		merged = append(merged, *old...)
		merged = append(merged, seqs...)
		if g.snapshot.CompareAndSwap(old, &merged) {
			cur = cursorValue()
			for _, s := range seqs {
				s.Set(cur)
			}
			return
		}
	}
}

// remove installs a snapshot with every occurrence of seq omitted and
// reports whether seq was present at all.
func (g *gatingGroup) remove(seq *Sequence) bool {
	for {
		old := g.snapshot.Load()
		found := false
		next := make([]*Sequence, 0, len(*old))
		for _, s := range *old {
			if s == seq {
				found = true
				continue
			}
			next = append(next, s)
		}
		if !found {
			return false
		}
		if g.snapshot.CompareAndSwap(old, &next) {
			return true
		}
	}
}
