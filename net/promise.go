package net

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// PromiseStatus tells a promise callback how its request was settled.
type PromiseStatus int

const (
	// PromiseDone delivers the response package.
	PromiseDone PromiseStatus = iota
	// PromiseTimeout fires when no response arrived in time.
	PromiseTimeout
	// PromiseCancelled fires when the connection was torn down with the
	// request still outstanding.
	PromiseCancelled
)

// String returns the status name.
func (s PromiseStatus) String() string {
	switch s {
	case PromiseDone:
		return "done"
	case PromiseTimeout:
		return "timeout"
	case PromiseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrDupPID reports a correlation id that is already awaiting a response.
var ErrDupPID = errors.New("correlation id already registered")

// PromiseFunc settles one request: with the response package on
// PromiseDone, with a nil package otherwise.
type PromiseFunc func(status PromiseStatus, pkg *Pkg)

type promise struct {
	pid   uint32
	cb    PromiseFunc
	timer *clock.Timer
}

// PromiseStore tracks the requests a connection sent to a peer, keyed by
// correlation id, until the matching response arrives, the request times
// out, or the connection is destroyed. Timers fire on a clock goroutine, so
// access is guarded even though the framing path itself is single-threaded.
type PromiseStore struct {
	mu      sync.Mutex
	clk     clock.Clock
	pending map[uint32]*promise
}

// NewPromiseStore creates an empty registry driven by clk.
func NewPromiseStore(clk clock.Clock) *PromiseStore {
	return &PromiseStore{
		clk:     clk,
		pending: make(map[uint32]*promise),
	}
}

// Register adds a pending request. When timeout is positive the promise is
// settled with PromiseTimeout if no response arrives in time.
func (ps *PromiseStore) Register(pid uint32, timeout time.Duration, cb PromiseFunc) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.pending[pid]; exists {
		return ErrDupPID
	}

	p := &promise{pid: pid, cb: cb}
	if timeout > 0 {
		p.timer = ps.clk.AfterFunc(timeout, func() {
			ps.expire(pid)
		})
	}
	ps.pending[pid] = p
	return nil
}

// Fulfil settles the promise matching pkg's correlation id with the
// response. Returns false when no promise is waiting on that id, which the
// caller treats as an unsolicited response.
func (ps *PromiseStore) Fulfil(pkg *Pkg) bool {
	ps.mu.Lock()
	p, ok := ps.pending[pkg.Hdr.PID]
	if ok {
		delete(ps.pending, pkg.Hdr.PID)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	ps.mu.Unlock()

	if !ok {
		return false
	}
	p.cb(PromiseDone, pkg)
	return true
}

// CancelAll settles every outstanding promise with PromiseCancelled. Called
// during connection teardown.
func (ps *PromiseStore) CancelAll() {
	ps.mu.Lock()
	cancelled := make([]*promise, 0, len(ps.pending))
	for pid, p := range ps.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		cancelled = append(cancelled, p)
		delete(ps.pending, pid)
	}
	ps.mu.Unlock()

	for _, p := range cancelled {
		p.cb(PromiseCancelled, nil)
	}
}

// Len returns the count of outstanding promises.
func (ps *PromiseStore) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pending)
}

func (ps *PromiseStore) expire(pid uint32) {
	ps.mu.Lock()
	p, ok := ps.pending[pid]
	if ok {
		delete(ps.pending, pid)
	}
	ps.mu.Unlock()

	if ok {
		p.cb(PromiseTimeout, nil)
	}
}
