package net

import (
	"errors"
)

// ErrPkgTooLarge reports that a declared package size exceeded the configured
// maximum. It stands in for allocation failure: the connection must not read
// toward a buffer it was never granted, so the condition is fatal for the
// connection.
var ErrPkgTooLarge = errors.New("declared package size exceeds maximum")

// AccBuffer is the accumulation buffer holding one not-yet-complete package.
// It is exclusively owned by a single connection; ownership of the assembled
// bytes passes to the completion callback only for the duration of the call.
type AccBuffer struct {
	buf   []byte
	limit int
}

// newAccBuffer creates an empty accumulation buffer whose capacity may never
// exceed limit bytes.
func newAccBuffer(limit int) *AccBuffer {
	return &AccBuffer{limit: limit}
}

// Len returns the count of valid accumulated bytes.
func (a *AccBuffer) Len() int {
	return len(a.buf)
}

// Cap returns the currently allocated capacity.
func (a *AccBuffer) Cap() int {
	return cap(a.buf)
}

// Bytes returns the accumulated bytes. The slice aliases the buffer's
// backing array and is invalidated by the next Append or EnsureCapacity.
func (a *AccBuffer) Bytes() []byte {
	return a.buf
}

// EnsureCapacity grows the allocation to exactly n bytes when the current
// capacity is smaller, preserving accumulated content. Growing past the
// configured limit fails with ErrPkgTooLarge and leaves the buffer untouched,
// so a failed grow never exposes partially valid memory.
func (a *AccBuffer) EnsureCapacity(n int) error {
	if n > a.limit {
		return ErrPkgTooLarge
	}
	if n <= cap(a.buf) {
		return nil
	}
	grown := make([]byte, len(a.buf), n)
	copy(grown, a.buf)
	a.buf = grown
	return nil
}

// Append copies b onto the end of the accumulated bytes, growing the
// allocation when needed. Subject to the same limit as EnsureCapacity.
func (a *AccBuffer) Append(b []byte) error {
	need := len(a.buf) + len(b)
	if err := a.EnsureCapacity(need); err != nil {
		return err
	}
	a.buf = append(a.buf, b...)
	return nil
}
