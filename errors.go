// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "fmt"

// Kind classifies an allocator failure. Kind is a taxonomy, not a Go error
// type hierarchy: every *Error carries exactly one Kind.
type Kind int

const (
	// KindNone is the zero value; never carried by a non-nil *Error.
	KindNone Kind = iota

	// KindInval marks a caller-supplied null or zero where not allowed.
	KindInval
	// KindNoMem marks failure of both heap growth and large-mapping.
	KindNoMem
	// KindOverflow marks arithmetic on a user-supplied size that would
	// overflow (calloc's n*elem product, principally).
	KindOverflow
	// KindCorruptMagic marks a header whose magic word did not match.
	KindCorruptMagic
	// KindCorruptHeadCanary marks a header whose leading canary was
	// overwritten.
	KindCorruptHeadCanary
	// KindCorruptTailCanary marks a block whose trailing canary was
	// overwritten.
	KindCorruptTailCanary
	// KindOutOfHeap marks a candidate pointer outside [heapBase, heapEnd).
	KindOutOfHeap
	// KindSizeOverflow marks a block whose declared size extends past
	// heapEnd.
	KindSizeOverflow
	// KindDoubleFree marks a Free of a block whose free flag is already
	// set.
	KindDoubleFree
	// KindStrategyInvalid marks a placement tag outside {first,next,best}.
	KindStrategyInvalid
)

func (k Kind) String() string {
	switch k {
	case KindInval:
		return "INVAL"
	case KindNoMem:
		return "NOMEM"
	case KindOverflow:
		return "OVERFLOW"
	case KindCorruptMagic:
		return "CORRUPT_MAGIC"
	case KindCorruptHeadCanary:
		return "CORRUPT_HEAD_CANARY"
	case KindCorruptTailCanary:
		return "CORRUPT_TAIL_CANARY"
	case KindOutOfHeap:
		return "OUT_OF_HEAP"
	case KindSizeOverflow:
		return "SIZE_OVERFLOW"
	case KindDoubleFree:
		return "DOUBLE_FREE"
	case KindStrategyInvalid:
		return "STRATEGY_INVALID"
	default:
		return "NONE"
	}
}

// Error is the allocator's uniform failure type. Validator failures on
// user-supplied pointers are always returned this way and logged; they
// never panic or abort the process (see §7 of the design notes).
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("malloc: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("malloc: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

// AsKind reports the Kind carried by err when err is an *Error. Kind does
// not implement error, so errors.Is(err, KindDoubleFree) does not apply;
// callers compare via AsKind instead.
func AsKind(err error) (Kind, bool) {
	if err == nil {
		return KindNone, false
	}
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return KindNone, false
}

func newErr(op string, k Kind, msg string) *Error {
	return &Error{Op: op, Kind: k, Msg: msg}
}
