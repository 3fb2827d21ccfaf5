package net

import (
	"sync/atomic"

	"go.uber.org/ratelimit"
	"golang.org/x/time/rate"
)

// AnomalyLimiter budgets protocol anomalies for one connection using a token
// bucket. A single over-delivery is tolerated and discarded, but a peer that
// keeps producing them drains the bucket, at which point the connection is
// treated as unusable and torn down.
//
// Atomic pointers allow the limiter parameters to be swapped at runtime when
// the transport configuration is reloaded.
type AnomalyLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// NewAnomalyLimiter creates a limiter allowing perSec anomalies per second
// with the given burst.
func NewAnomalyLimiter(perSec int, burst int) *AnomalyLimiter {
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	if limiter == nil {
		return nil
	}
	self := &AnomalyLimiter{}
	self.limiter.Store(limiter)
	return self
}

// Allow consumes one anomaly token. A false return means the budget is
// exhausted and the connection should be closed.
func (l *AnomalyLimiter) Allow() bool {
	return l.limiter.Load().Allow()
}

// Reload replaces the limiter parameters at runtime.
func (l *AnomalyLimiter) Reload(perSec int, burst int) {
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	if limiter == nil {
		return
	}
	l.limiter.Store(limiter)
}

// FunnelLogPacer spaces out anomaly diagnostics with a leaky bucket so a
// misbehaving peer cannot flood the log. Take blocks just long enough to
// hold the configured rate, which also slows the offending connection down.
type FunnelLogPacer struct {
	limiter atomic.Pointer[ratelimit.Limiter]
}

// NewFunnelLogPacer creates a pacer emitting at most perSec diagnostics per
// second.
func NewFunnelLogPacer(perSec int) *FunnelLogPacer {
	limiter := ratelimit.New(perSec)
	if limiter == nil {
		return nil
	}
	self := &FunnelLogPacer{}
	self.limiter.Store(&limiter)
	return self
}

// Take blocks until the next diagnostic may be emitted.
func (l *FunnelLogPacer) Take() {
	(*l.limiter.Load()).Take()
}

// Reload replaces the pacing rate at runtime.
func (l *FunnelLogPacer) Reload(perSec int) {
	limiter := ratelimit.New(perSec)
	if limiter == nil {
		return
	}
	l.limiter.Store(&limiter)
}
