package net

import (
	"bytes"
	"errors"
	"testing"
)

func TestAccBufferEnsureCapacity(t *testing.T) {
	a := newAccBuffer(64)

	if err := a.EnsureCapacity(16); err != nil {
		t.Fatalf("EnsureCapacity(16) error = %v", err)
	}
	if a.Cap() < 16 {
		t.Errorf("Cap() = %v, want >= 16", a.Cap())
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %v, want 0", a.Len())
	}

	// growing again to a smaller size keeps the allocation
	before := a.Cap()
	if err := a.EnsureCapacity(8); err != nil {
		t.Fatalf("EnsureCapacity(8) error = %v", err)
	}
	if a.Cap() != before {
		t.Errorf("Cap() changed from %v to %v on no-op grow", before, a.Cap())
	}
}

func TestAccBufferEnsureCapacityPreservesContent(t *testing.T) {
	a := newAccBuffer(64)
	if err := a.Append([]byte("abc")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := a.EnsureCapacity(32); err != nil {
		t.Fatalf("EnsureCapacity(32) error = %v", err)
	}
	if !bytes.Equal(a.Bytes(), []byte("abc")) {
		t.Errorf("Bytes() = %q, want %q", a.Bytes(), "abc")
	}
}

func TestAccBufferLimit(t *testing.T) {
	a := newAccBuffer(8)

	if err := a.Append([]byte("12345678")); err != nil {
		t.Fatalf("Append() at limit error = %v", err)
	}

	err := a.EnsureCapacity(9)
	if !errors.Is(err, ErrPkgTooLarge) {
		t.Fatalf("EnsureCapacity(9) error = %v, want ErrPkgTooLarge", err)
	}
	// failed grow leaves content untouched
	if !bytes.Equal(a.Bytes(), []byte("12345678")) {
		t.Errorf("Bytes() = %q after failed grow, want %q", a.Bytes(), "12345678")
	}

	err = a.Append([]byte("9"))
	if !errors.Is(err, ErrPkgTooLarge) {
		t.Errorf("Append() past limit error = %v, want ErrPkgTooLarge", err)
	}
	if a.Len() != 8 {
		t.Errorf("Len() = %v after failed append, want 8", a.Len())
	}
}
