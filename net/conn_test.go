package net

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countedOrigin is a reference-counted origin stand-in.
type countedOrigin struct {
	refs atomic.Int32
}

func (o *countedOrigin) Incref() { o.refs.Add(1) }
func (o *countedOrigin) Decref() { o.refs.Add(-1) }

// peerServerOrigin additionally records the back-pointer and flag resets.
type peerServerOrigin struct {
	countedOrigin
	conn       *Conn
	flagsReset bool
}

func (o *peerServerOrigin) SetConn(c *Conn) { o.conn = c }
func (o *peerServerOrigin) ResetFlags()     { o.flagsReset = true }

func TestRoleString(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "backend", RoleBackend.String())
	assert.Equal(t, "server", RoleServer.String())
	assert.Equal(t, "unknown", Role(0).String())
}

func TestConnDeliversWithSelf(t *testing.T) {
	var got *Conn
	c := NewConn(RoleClient, testMaxPkgSize, func(conn *Conn, pkg *Pkg) {
		got = conn
	})

	require.NoError(t, c.OnChunk(EncodePkg(1, 1, []byte("x"))))
	assert.Same(t, c, got)
}

func TestConnTeardownClientDecrefsOrigin(t *testing.T) {
	c := NewConn(RoleClient, testMaxPkgSize, nil)
	origin := &countedOrigin{}

	require.NoError(t, c.AttachOrigin(origin))
	assert.Equal(t, int32(1), origin.refs.Load())

	c.Destroy()
	assert.Equal(t, int32(0), origin.refs.Load())
	assert.Nil(t, c.Origin())
}

func TestConnTeardownBackendDecrefsOrigin(t *testing.T) {
	c := NewConn(RoleBackend, testMaxPkgSize, nil)
	origin := &countedOrigin{}

	require.NoError(t, c.AttachOrigin(origin))
	c.Destroy()
	assert.Equal(t, int32(0), origin.refs.Load())
}

func TestConnTeardownServer(t *testing.T) {
	c := NewConn(RoleServer, testMaxPkgSize, nil)
	origin := &peerServerOrigin{}

	require.NoError(t, c.AttachOrigin(origin))
	assert.Same(t, c, origin.conn)
	assert.Equal(t, int32(1), origin.refs.Load())

	// outstanding promise must be cancelled by teardown
	mock := clock.NewMock()
	c.SetPromiseStore(NewPromiseStore(mock))
	var status PromiseStatus
	settled := false
	require.NoError(t, c.Promises().Register(9, time.Minute, func(s PromiseStatus, pkg *Pkg) {
		status = s
		settled = true
	}))

	c.Destroy()

	assert.Nil(t, origin.conn)
	assert.True(t, origin.flagsReset)
	assert.Equal(t, int32(0), origin.refs.Load())
	assert.True(t, settled)
	assert.Equal(t, PromiseCancelled, status)
	assert.Equal(t, 0, c.Promises().Len())
}

func TestConnTeardownBeforeOriginCancelsPromises(t *testing.T) {
	// torn down mid-handshake: server role, origin never attached
	c := NewConn(RoleServer, testMaxPkgSize, nil)

	mock := clock.NewMock()
	c.SetPromiseStore(NewPromiseStore(mock))

	calls := 0
	var status PromiseStatus
	require.NoError(t, c.Promises().Register(4, 10*time.Second, func(s PromiseStatus, pkg *Pkg) {
		calls++
		status = s
	}))

	c.Destroy()

	require.Equal(t, 1, calls)
	assert.Equal(t, PromiseCancelled, status)
	assert.Equal(t, 0, c.Promises().Len())

	// the cancelled timer must not settle the promise a second time
	mock.Add(time.Minute)
	assert.Equal(t, 1, calls)
}

func TestConnTeardownClientCancelsPromises(t *testing.T) {
	c := NewConn(RoleClient, testMaxPkgSize, nil)
	c.SetPromiseStore(NewPromiseStore(clock.NewMock()))

	var status PromiseStatus
	settled := false
	// no timeout armed: only teardown can settle this one
	require.NoError(t, c.Promises().Register(5, 0, func(s PromiseStatus, pkg *Pkg) {
		settled = true
		status = s
	}))

	c.Destroy()

	assert.True(t, settled)
	assert.Equal(t, PromiseCancelled, status)
}

func TestConnServerRejectsPlainOrigin(t *testing.T) {
	c := NewConn(RoleServer, testMaxPkgSize, nil)

	err := c.AttachOrigin(&countedOrigin{})
	assert.ErrorIs(t, err, ErrOriginType)
	assert.Nil(t, c.Origin())
}

func TestConnTeardownWithoutOrigin(t *testing.T) {
	c := NewConn(RoleClient, testMaxPkgSize, nil)
	require.NoError(t, c.OnChunk(EncodePkg(1, 1, []byte("partial"))[:6]))

	// no origin attached yet, partial data is discarded
	c.Destroy()
	assert.Equal(t, StateIdle, c.Reasm().State())
}
