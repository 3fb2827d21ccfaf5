package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnomalyLimiterBurst(t *testing.T) {
	l := NewAnomalyLimiter(0, 2)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	// zero refill rate: the bucket never recovers
	assert.False(t, l.Allow())
}

func TestAnomalyLimiterReload(t *testing.T) {
	l := NewAnomalyLimiter(0, 1)

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	l.Reload(0, 3)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestFunnelLogPacer(t *testing.T) {
	p := NewFunnelLogPacer(1000)
	// the first take is always immediate
	p.Take()

	p.Reload(500)
	p.Take()
}
