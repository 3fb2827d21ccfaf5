package net

import (
	"bytes"
	"testing"
)

func TestEncodePkgHead(t *testing.T) {
	tests := []struct {
		name string
		hdr  *PkgHead
	}{
		{
			name: "normal case",
			hdr: &PkgHead{
				BodySize: 100,
				PID:      7,
				Tp:       3,
			},
		},
		{
			name: "zero values",
			hdr: &PkgHead{
				BodySize: 0,
				PID:      0,
				Tp:       0,
			},
		},
		{
			name: "max values",
			hdr: &PkgHead{
				BodySize: 0xFFFFFFFF,
				PID:      0xFFFFFFFF,
				Tp:       0xFFFF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EncodePkgHead(tt.hdr)
			if len(result) != PkgHeaderSize {
				t.Errorf("EncodePkgHead() length = %v, want %v", len(result), PkgHeaderSize)
			}

			decoded, err := DecodePkgHead(result)
			if err != nil {
				t.Fatalf("DecodePkgHead() error = %v", err)
			}
			if *decoded != *tt.hdr {
				t.Errorf("round trip = %+v, want %+v", decoded, tt.hdr)
			}
		})
	}
}

func TestDecodePkgHeadLittleEndian(t *testing.T) {
	// byte layout is little-endian: body size, pid, tp
	data := []byte{
		0x05, 0x00, 0x00, 0x00, // BodySize = 5
		0x2A, 0x00, 0x00, 0x00, // PID = 42
		0x01, 0x00, // Tp = 1
	}

	hdr, err := DecodePkgHead(data)
	if err != nil {
		t.Fatalf("DecodePkgHead() error = %v", err)
	}
	if hdr.BodySize != 5 {
		t.Errorf("BodySize = %v, want 5", hdr.BodySize)
	}
	if hdr.PID != 42 {
		t.Errorf("PID = %v, want 42", hdr.PID)
	}
	if hdr.Tp != 1 {
		t.Errorf("Tp = %v, want 1", hdr.Tp)
	}
}

func TestDecodePkgHeadShortBuffer(t *testing.T) {
	for n := 0; n < PkgHeaderSize; n++ {
		if _, err := DecodePkgHead(make([]byte, n)); err == nil {
			t.Errorf("DecodePkgHead() with %d bytes: expected error", n)
		}
	}
}

func TestTotalSize(t *testing.T) {
	tests := []struct {
		name     string
		bodySize uint32
		want     int
	}{
		{"empty body", 0, PkgHeaderSize},
		{"small body", 5, PkgHeaderSize + 5},
		{"large body", 1 << 20, PkgHeaderSize + 1<<20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := EncodePkgHead(&PkgHead{BodySize: tt.bodySize})
			if got := TotalSize(buf); got != tt.want {
				t.Errorf("TotalSize() = %v, want %v", got, tt.want)
			}
			if got := DeclaredBodySize(buf); got != tt.bodySize {
				t.Errorf("DeclaredBodySize() = %v, want %v", got, tt.bodySize)
			}
		})
	}
}

func TestEncodePkg(t *testing.T) {
	body := []byte("hello")
	frame := EncodePkg(42, 1, body)

	if len(frame) != PkgHeaderSize+len(body) {
		t.Fatalf("frame length = %v, want %v", len(frame), PkgHeaderSize+len(body))
	}

	pkg, err := parsePkg(frame)
	if err != nil {
		t.Fatalf("parsePkg() error = %v", err)
	}
	if pkg.Hdr.PID != 42 || pkg.Hdr.Tp != 1 || pkg.Hdr.BodySize != 5 {
		t.Errorf("header = %+v, want pid=42 tp=1 bodySize=5", pkg.Hdr)
	}
	if !bytes.Equal(pkg.Body, body) {
		t.Errorf("body = %q, want %q", pkg.Body, body)
	}
}
