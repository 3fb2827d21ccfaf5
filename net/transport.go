package net

import "errors"

// ErrConnClosed reports an operation on a connection that is gone, either
// never established or already torn down.
var ErrConnClosed = errors.New("connection closed")

// Transport is the lifecycle interface of a network transport front-end.
type Transport interface {
	// Start begins accepting connections and delivering packages.
	Start(TransportOption) error

	// StopRecv stops receiving new packages while keeping established
	// connections open, when the implementation supports it.
	StopRecv() error

	// Stop shuts the transport down, closing every connection.
	Stop() error
}

// SendBackFunc queues a response package on the connection the request
// arrived on.
type SendBackFunc func(pid uint32, tp uint16, body []byte) error

// Delivery hands one completed package to the application layer, together
// with the connection it arrived on and a way to respond over the same
// channel. The package must not be retained past the OnRecvPkg call.
type Delivery struct {
	SendBack SendBackFunc
	Conn     *Conn
	Pkg      *Pkg
}

// PkgReceiver is the application-layer callback for completed packages.
type PkgReceiver interface {
	// OnRecvPkg is called synchronously within the chunk-processing step,
	// exactly once per completed package.
	OnRecvPkg(d *Delivery) error
}

// TransportOption carries the collaborators a transport needs to run.
type TransportOption struct {
	// Receiver gets every completed package.
	Receiver PkgReceiver
}
