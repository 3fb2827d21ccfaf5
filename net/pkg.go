// Package net implements the transport framing layer of the Varuna clustered
// database server. It turns the raw, arbitrarily-chunked byte stream of a TCP
// connection into discrete length-delimited packages and manages the
// per-connection state needed to do so.
package net

import (
	"encoding/binary"
	"errors"
)

// PkgHeaderSize is the fixed wire size of a package header.
const PkgHeaderSize = 10

// PkgHead is the fixed-width package header. On the wire the fields appear
// in order, little-endian: body size (4 bytes), correlation id (4 bytes),
// message type (2 bytes). The body of exactly BodySize bytes follows
// immediately after.
type PkgHead struct {
	BodySize uint32
	PID      uint32
	Tp       uint16
}

var errHeadTooShort = errors.New("buffer shorter than package header")

// EncodePkgHead encodes hdr into a fresh PkgHeaderSize byte slice.
func EncodePkgHead(hdr *PkgHead) []byte {
	buf := make([]byte, PkgHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], hdr.BodySize)
	binary.LittleEndian.PutUint32(buf[4:8], hdr.PID)
	binary.LittleEndian.PutUint16(buf[8:10], hdr.Tp)
	return buf
}

// DecodePkgHead decodes a header from buf, which must hold at least
// PkgHeaderSize bytes.
func DecodePkgHead(buf []byte) (*PkgHead, error) {
	if len(buf) < PkgHeaderSize {
		return nil, errHeadTooShort
	}
	return &PkgHead{
		BodySize: binary.LittleEndian.Uint32(buf[0:4]),
		PID:      binary.LittleEndian.Uint32(buf[4:8]),
		Tp:       binary.LittleEndian.Uint16(buf[8:10]),
	}, nil
}

// DeclaredBodySize reads the body-length field from a buffer holding at
// least PkgHeaderSize bytes. Callers must guarantee the length precondition;
// the reassembler state machine does.
func DeclaredBodySize(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[0:4])
}

// TotalSize returns the full package size declared by the header at the
// start of buf: PkgHeaderSize plus the declared body size. Same length
// precondition as DeclaredBodySize.
func TotalSize(buf []byte) int {
	return PkgHeaderSize + int(DeclaredBodySize(buf))
}

// EncodePkg builds a complete wire package for the send path.
func EncodePkg(pid uint32, tp uint16, body []byte) []byte {
	buf := make([]byte, PkgHeaderSize+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(buf[4:8], pid)
	binary.LittleEndian.PutUint16(buf[8:10], tp)
	copy(buf[PkgHeaderSize:], body)
	return buf
}

// Pkg is one completed package as handed to the completion callback. Body
// aliases the reassembler's accumulation buffer, which is released as soon
// as the callback returns: callbacks that need the data longer must copy it
// out.
type Pkg struct {
	Hdr  *PkgHead
	Body []byte
}

// parsePkg forms a Pkg view over a buffer holding exactly one complete
// package.
func parsePkg(buf []byte) (*Pkg, error) {
	hdr, err := DecodePkgHead(buf)
	if err != nil {
		return nil, err
	}
	return &Pkg{
		Hdr:  hdr,
		Body: buf[PkgHeaderSize : PkgHeaderSize+int(hdr.BodySize)],
	}, nil
}
