package net

// Origin is the externally-owned entity a connection is associated with:
// an authenticated user for client connections, a peer-server descriptor for
// backend and server connections. The connection holds one counted
// reference from attach until teardown; the entity itself lives elsewhere.
type Origin interface {
	Incref()
	Decref()
}

// ServerOrigin is the origin of a Server-role connection. The relation is
// bidirectional: the peer-server descriptor points back at its connection,
// and carries status flags derived from it. Both are cleared by the
// connection's teardown, never by the descriptor reaching back in.
type ServerOrigin interface {
	Origin
	// SetConn updates the descriptor's back-pointer.
	SetConn(c *Conn)
	// ResetFlags clears connection-derived status flags.
	ResetFlags()
}
