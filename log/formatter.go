package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Buffer append helpers used by LogEvent to build one JSON log line without
// going through encoding/json for the common scalar cases.

// AppendBeginMarker writes the object start character '{'.
func AppendBeginMarker(buf *bytes.Buffer) {
	buf.WriteByte('{')
}

// AppendEndMarker writes the object end character '}'.
func AppendEndMarker(buf *bytes.Buffer) {
	buf.WriteByte('}')
}

// AppendKey writes a JSON key with a comma separator when the buffer already
// holds a previous key/value pair.
func AppendKey(buf *bytes.Buffer, key string) {
	if buf.Len() >= 1 && buf.Bytes()[buf.Len()-1] != '{' {
		buf.WriteByte(',')
	}
	AppendString(buf, key)
	buf.WriteByte(':')
}

// AppendNil writes a JSON null value.
func AppendNil(buf *bytes.Buffer) {
	buf.WriteString("null")
}

// AppendLineBreak terminates a log line.
func AppendLineBreak(buf *bytes.Buffer) {
	buf.WriteByte('\n')
}

// AppendBool writes a boolean value.
func AppendBool(buf *bytes.Buffer, val bool) {
	buf.WriteString(strconv.FormatBool(val))
}

// AppendInt writes an int value.
func AppendInt(buf *bytes.Buffer, val int) {
	buf.WriteString(strconv.FormatInt(int64(val), 10))
}

// AppendInt32 writes an int32 value.
func AppendInt32(buf *bytes.Buffer, val int32) {
	buf.WriteString(strconv.FormatInt(int64(val), 10))
}

// AppendInt64 writes an int64 value.
func AppendInt64(buf *bytes.Buffer, val int64) {
	buf.WriteString(strconv.FormatInt(val, 10))
}

// AppendUint16 writes a uint16 value.
func AppendUint16(buf *bytes.Buffer, val uint16) {
	buf.WriteString(strconv.FormatUint(uint64(val), 10))
}

// AppendUint32 writes a uint32 value.
func AppendUint32(buf *bytes.Buffer, val uint32) {
	buf.WriteString(strconv.FormatUint(uint64(val), 10))
}

// AppendUint64 writes a uint64 value.
func AppendUint64(buf *bytes.Buffer, val uint64) {
	buf.WriteString(strconv.FormatUint(val, 10))
}

// AppendFloat64 writes a float64 value, mapping NaN and infinities to quoted
// strings so the line stays valid JSON.
func AppendFloat64(buf *bytes.Buffer, val float64) {
	switch {
	case math.IsNaN(val):
		buf.WriteString(`"NaN"`)
	case math.IsInf(val, 1):
		buf.WriteString(`"Inf"`)
	case math.IsInf(val, -1):
		buf.WriteString(`"-Inf"`)
	default:
		buf.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	}
}

// AppendInterface marshals an arbitrary value through encoding/json.
func AppendInterface(buf *bytes.Buffer, i any) {
	marshaled, err := json.Marshal(i)
	if err != nil {
		AppendString(buf, fmt.Sprintf("marshaling error: %v", err))
		return
	}
	buf.Write(marshaled)
}

const _hex = "0123456789abcdef"

var _noEscapeTable = [256]bool{}

func init() {
	for i := 0; i <= 0x7e; i++ {
		_noEscapeTable[i] = i >= 0x20 && i != '\\' && i != '"'
	}
}

// AppendStrings encodes a string slice as a JSON array.
func AppendStrings(buf *bytes.Buffer, vals []string) {
	if len(vals) == 0 {
		buf.WriteString("[]")
		return
	}

	buf.WriteByte('[')
	AppendString(buf, vals[0])
	for i := 1; i < len(vals); i++ {
		buf.WriteByte(',')
		AppendString(buf, vals[i])
	}
	buf.WriteByte(']')
}

// AppendString JSON-encodes a string. The fast path appends the string as-is
// when no byte needs escaping.
func AppendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')

	for i := 0; i < len(s); i++ {
		if !_noEscapeTable[s[i]] {
			appendStringComplex(buf, s)
			return
		}
	}

	buf.WriteString(s)
	buf.WriteByte('"')
}

// appendStringComplex escapes the bytes that AppendString's fast path cannot
// pass through unmodified.
func appendStringComplex(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				if start < i {
					buf.WriteString(s[start:i])
				}
				buf.WriteString(`�`)
				i += size - 1
				start = i + 1
				continue
			}
			i += size - 1
			continue
		}

		if _noEscapeTable[b] {
			continue
		}

		if start < i {
			buf.WriteString(s[start:i])
		}

		switch b {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(_hex[b>>4])
			buf.WriteByte(_hex[b&0xF])
		}
		start = i + 1
	}

	if start < len(s) {
		buf.WriteString(s[start:])
	}
	buf.WriteByte('"')
}
