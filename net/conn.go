package net

import (
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/lcx/varuna/log"
)

// Role is the fixed category of a connection, assigned at creation and
// immutable afterwards. It determines the origin entity type and the
// teardown obligations.
type Role uint8

const (
	// RoleClient is a connection from a database client; its origin is an
	// authenticated user.
	RoleClient Role = iota + 1
	// RoleBackend is an outbound connection to a peer server in the
	// cluster; its origin is the peer-server descriptor.
	RoleBackend
	// RoleServer is an inbound connection from a peer server; its origin
	// is the peer-server descriptor, which also points back at the
	// connection.
	RoleServer
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleBackend:
		return "backend"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// ErrOriginType reports an origin whose concrete type does not match the
// connection's role.
var ErrOriginType = errors.New("origin type does not match connection role")

// ConnPkgFunc receives completed packages together with the connection they
// arrived on. Invoked synchronously inside the chunk-processing step; the
// package must not be retained past the call.
type ConnPkgFunc func(c *Conn, pkg *Pkg)

// Conn is the per-socket connection state: role, framing state machine,
// completion callback, and the optional origin reference. Exactly one Conn
// exists per open socket; it is destroyed exactly once, when the socket
// closes.
type Conn struct {
	role     Role
	reasm    *Reassembler
	onPkg    ConnPkgFunc
	origin   Origin
	promises *PromiseStore
}

// NewConn creates the connection state for a newly established socket.
// Declared package sizes above maxPkgSize are treated as allocation
// failures, fatal to the connection.
func NewConn(role Role, maxPkgSize int, onPkg ConnPkgFunc) *Conn {
	c := &Conn{
		role:  role,
		onPkg: onPkg,
	}
	c.reasm = NewReassembler(maxPkgSize, func(pkg *Pkg) {
		if c.onPkg != nil {
			c.onPkg(c, pkg)
		}
	})
	return c
}

// Role returns the connection's fixed role.
func (c *Conn) Role() Role {
	return c.role
}

// Reasm exposes the framing state machine for the transport's read loop.
func (c *Conn) Reasm() *Reassembler {
	return c.reasm
}

// OnChunk feeds one received chunk to the framing state machine.
func (c *Conn) OnChunk(chunk []byte) error {
	return c.reasm.OnChunk(chunk)
}

// NextReadSize sizes the transport's next read. See Reassembler.NextReadSize.
func (c *Conn) NextReadSize(suggested int) int {
	return c.reasm.NextReadSize(suggested)
}

// AttachOrigin binds the connection to its origin entity after the
// role-specific handshake, taking one counted reference. For the Server
// role the origin must be a ServerOrigin and its back-pointer is set to
// this connection.
func (c *Conn) AttachOrigin(o Origin) error {
	if o == nil {
		return nil
	}
	if c.role == RoleServer {
		so, ok := o.(ServerOrigin)
		if !ok {
			return ErrOriginType
		}
		so.SetConn(c)
	}
	o.Incref()
	c.origin = o
	return nil
}

// Origin returns the attached origin, nil before the handshake completes.
func (c *Conn) Origin() Origin {
	return c.origin
}

// Promises returns the connection's correlation registry, creating it on
// first use with the wall clock.
func (c *Conn) Promises() *PromiseStore {
	if c.promises == nil {
		c.promises = NewPromiseStore(clock.New())
	}
	return c.promises
}

// SetPromiseStore replaces the correlation registry, used to install one
// driven by a mock clock.
func (c *Conn) SetPromiseStore(ps *PromiseStore) {
	c.promises = ps
}

// Destroy tears the connection state down. The socket must already be
// closed; no further chunks may be processed. Outstanding promises are
// cancelled first, whatever the role and even when teardown happens before
// an origin was attached. Role-specific effects:
//
//   - Client and Backend release their counted origin reference;
//   - Server additionally clears the descriptor's back-pointer and resets
//     its connection-derived flags.
//
// Calling Destroy twice is undefined; callers guarantee single invocation.
func (c *Conn) Destroy() {
	log.Debug().Str("role", c.role.String()).Msg("free connection")

	if c.promises != nil {
		c.promises.CancelAll()
	}

	switch c.role {
	case RoleClient, RoleBackend:
		if c.origin != nil {
			c.origin.Decref()
		}
	case RoleServer:
		if c.origin != nil {
			so := c.origin.(ServerOrigin)
			so.SetConn(nil)
			so.ResetFlags()
			so.Decref()
		}
	}
	c.origin = nil

	c.reasm.Reset()
}
