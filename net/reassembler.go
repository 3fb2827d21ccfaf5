package net

import (
	"errors"

	"github.com/lcx/varuna/log"
	"github.com/lcx/varuna/metrics"
)

// ErrAnomalyBudget reports that a connection produced protocol anomalies
// faster than its budget allows. A single over-delivery is discarded and
// forgiven; a stream of them marks the peer as unusable.
var ErrAnomalyBudget = errors.New("protocol anomaly budget exhausted")

// ReasmState describes the reassembler's accumulation status.
type ReasmState int

const (
	// StateIdle holds no partial data.
	StateIdle ReasmState = iota
	// StateHeaderPending holds fewer bytes than a package header.
	StateHeaderPending
	// StateBodyPending holds a complete header and an incomplete body.
	StateBodyPending
)

// OnPkgFunc is invoked exactly once per completed package. The package's
// body aliases the accumulation buffer and must not be retained after the
// call returns.
type OnPkgFunc func(pkg *Pkg)

// Reassembler is the per-connection framing state machine. It consumes the
// chunks the transport delivers, accumulates them into a single owned
// buffer, and resolves package boundaries:
//
//   - a chunk carrying exactly one package is delivered without retaining
//     state;
//   - a chunk carrying more bytes than its header declares is a protocol
//     anomaly, discarded without delivery;
//   - anything shorter is accumulated until the declared size is reached,
//     growing the buffer to exactly that size once the header is known.
//
// All methods must be called from the connection's single processing
// goroutine.
type Reassembler struct {
	acc        *AccBuffer
	maxPkgSize int
	onPkg      OnPkgFunc
	limiter    *AnomalyLimiter
	pacer      *FunnelLogPacer
}

// NewReassembler creates a reassembler delivering completed packages to
// onPkg. Declared package sizes above maxPkgSize are rejected as allocation
// failures.
func NewReassembler(maxPkgSize int, onPkg OnPkgFunc) *Reassembler {
	return &Reassembler{
		maxPkgSize: maxPkgSize,
		onPkg:      onPkg,
	}
}

// SetAnomalyLimiter installs a per-connection anomaly budget. Without one,
// anomalies are never connection-fatal.
func (r *Reassembler) SetAnomalyLimiter(l *AnomalyLimiter) {
	r.limiter = l
}

// SetLogPacer installs a pacer for anomaly diagnostics.
func (r *Reassembler) SetLogPacer(p *FunnelLogPacer) {
	r.pacer = p
}

// State returns the current accumulation state.
func (r *Reassembler) State() ReasmState {
	switch {
	case r.acc == nil:
		return StateIdle
	case r.acc.Len() < PkgHeaderSize:
		return StateHeaderPending
	default:
		return StateBodyPending
	}
}

// AccLen returns the count of accumulated bytes, zero when idle.
func (r *Reassembler) AccLen() int {
	if r.acc == nil {
		return 0
	}
	return r.acc.Len()
}

// NextReadSize decides how many bytes the transport should attempt to read
// next. With a known header it requests exactly the bytes missing from the
// current package, never more; before that it requests the suggested default
// minus whatever is already held.
func (r *Reassembler) NextReadSize(suggested int) int {
	if r.acc == nil {
		return suggested
	}
	if r.acc.Len() >= PkgHeaderSize {
		return TotalSize(r.acc.Bytes()) - r.acc.Len()
	}
	return suggested - r.acc.Len()
}

// OnChunk consumes one chunk delivered by the transport. A nil return means
// the connection may keep reading; an error is fatal for the connection and
// the caller must tear it down. Partial state is already discarded when an
// error is returned.
func (r *Reassembler) OnChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	if r.acc == nil {
		return r.onFirstChunk(chunk)
	}

	if r.acc.Len() < PkgHeaderSize {
		if err := r.acc.Append(chunk); err != nil {
			r.Reset()
			return err
		}
		if r.acc.Len() < PkgHeaderSize {
			return nil
		}
		// Header just completed; grow to the exact declared size.
		total := TotalSize(r.acc.Bytes())
		if total > r.maxPkgSize {
			r.Reset()
			return ErrPkgTooLarge
		}
		if total > r.acc.Len() {
			if err := r.acc.EnsureCapacity(total); err != nil {
				r.Reset()
				return err
			}
		}
	} else {
		if err := r.acc.Append(chunk); err != nil {
			r.Reset()
			return err
		}
	}

	return r.resolve()
}

// onFirstChunk handles a chunk arriving with no accumulation in progress.
func (r *Reassembler) onFirstChunk(chunk []byte) error {
	if len(chunk) < PkgHeaderSize {
		acc := newAccBuffer(r.maxPkgSize)
		if err := acc.Append(chunk); err != nil {
			return err
		}
		r.acc = acc
		return nil
	}

	total := TotalSize(chunk)
	if total > r.maxPkgSize {
		return ErrPkgTooLarge
	}

	if len(chunk) == total {
		// Whole package in one delivery; nothing to retain.
		if pkg, err := parsePkg(chunk); err == nil {
			r.onPkg(pkg)
		}
		return nil
	}

	if len(chunk) > total {
		return r.anomaly(chunk)
	}

	acc := newAccBuffer(r.maxPkgSize)
	if err := acc.EnsureCapacity(total); err != nil {
		return err
	}
	if err := acc.Append(chunk); err != nil {
		return err
	}
	r.acc = acc
	return nil
}

// resolve checks whether the accumulation reached the declared size and
// settles it.
func (r *Reassembler) resolve() error {
	total := TotalSize(r.acc.Bytes())

	if r.acc.Len() < total {
		return nil
	}

	if r.acc.Len() == total {
		if pkg, err := parsePkg(r.acc.Bytes()); err == nil {
			r.onPkg(pkg)
		}
		r.Reset()
		return nil
	}

	err := r.anomaly(r.acc.Bytes())
	r.Reset()
	return err
}

// anomaly records an over-delivery and decides whether the connection has
// used up its tolerance.
func (r *Reassembler) anomaly(buf []byte) error {
	hdr, _ := DecodePkgHead(buf)

	if r.pacer != nil {
		r.pacer.Take()
	}
	log.Warn().
		Uint32("pid", hdr.PID).
		Uint32("len", hdr.BodySize).
		Uint16("tp", hdr.Tp).
		Int("got", len(buf)).
		Msg("got more bytes than expected, ignore package")
	metrics.IncrCounterWithGroup("net", "anomaly_total", 1)

	if r.limiter != nil && !r.limiter.Allow() {
		return ErrAnomalyBudget
	}
	return nil
}

// Reset discards any partial accumulation. Called on completion, on
// anomaly, and when the connection is torn down mid-package.
func (r *Reassembler) Reset() {
	r.acc = nil
}
