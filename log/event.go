package log

import (
	"bytes"
	"strconv"
	"time"
)

// LogEvent is one structured log entry under construction. It offers a fluent
// API for appending key/value pairs and owns a reusable buffer holding the
// formatted JSON line. Events are pooled by the logger; a finished event must
// not be used after Msg or End returns.
type LogEvent struct {
	buf    *bytes.Buffer
	logger Logger
	level  Level
}

func newEvent(l Logger) *LogEvent {
	e := &LogEvent{
		logger: l,
		level:  DebugLevel,
	}

	if e.buf == nil {
		e.buf = &bytes.Buffer{}
	}

	if e.buf.Cap() == 0 {
		e.buf.Grow(1024)
	}
	return e
}

// Reset clears the event so it can be handed out again by the pool. Oversized
// buffers are shrunk so one huge entry does not pin memory forever.
func (e *LogEvent) Reset() {
	e.buf.Reset()
	e.level = DebugLevel

	if e.buf.Cap() > 4096 {
		e.buf.Grow(1024)
	}

	AppendBeginMarker(e.buf)
}

// Time appends a timestamp formatted as 'YYYY-MM-DD HH:MM:SS.000'.
func (e *LogEvent) Time(k string, v *time.Time) *LogEvent {
	if e == nil {
		return nil
	}

	AppendKey(e.buf, k)

	y := v.Year()
	mo := int(v.Month())
	d := v.Day()
	h := v.Hour()
	m := v.Minute()
	s := v.Second()
	ms := v.Nanosecond() / 1000000

	const timeLen = 23
	var timeBuf [timeLen]byte

	timeBuf[0] = byte('0' + y/1000)
	timeBuf[1] = byte('0' + (y/100)%10)
	timeBuf[2] = byte('0' + (y/10)%10)
	timeBuf[3] = byte('0' + y%10)
	timeBuf[4] = '-'
	timeBuf[5] = byte('0' + mo/10)
	timeBuf[6] = byte('0' + mo%10)
	timeBuf[7] = '-'
	timeBuf[8] = byte('0' + d/10)
	timeBuf[9] = byte('0' + d%10)
	timeBuf[10] = ' '
	timeBuf[11] = byte('0' + h/10)
	timeBuf[12] = byte('0' + h%10)
	timeBuf[13] = ':'
	timeBuf[14] = byte('0' + m/10)
	timeBuf[15] = byte('0' + m%10)
	timeBuf[16] = ':'
	timeBuf[17] = byte('0' + s/10)
	timeBuf[18] = byte('0' + s%10)
	timeBuf[19] = '.'
	timeBuf[20] = byte('0' + ms/100)
	timeBuf[21] = byte('0' + (ms/10)%10)
	timeBuf[22] = byte('0' + ms%10)

	e.buf.WriteByte('"')
	e.buf.Write(timeBuf[:])
	e.buf.WriteByte('"')
	return e
}

// Str appends a string field.
func (e *LogEvent) Str(k string, s string) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendString(e.buf, s)
	return e
}

// Strs appends a string slice field.
func (e *LogEvent) Strs(k string, v []string) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendStrings(e.buf, v)
	return e
}

// Int appends an int field.
func (e *LogEvent) Int(k string, v int) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendInt(e.buf, v)
	return e
}

// Int32 appends an int32 field.
func (e *LogEvent) Int32(k string, v int32) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendInt32(e.buf, v)
	return e
}

// Int64 appends an int64 field.
func (e *LogEvent) Int64(k string, v int64) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendInt64(e.buf, v)
	return e
}

// Uint16 appends a uint16 field.
func (e *LogEvent) Uint16(k string, v uint16) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendUint16(e.buf, v)
	return e
}

// Uint32 appends a uint32 field.
func (e *LogEvent) Uint32(k string, v uint32) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendUint32(e.buf, v)
	return e
}

// Uint64 appends a uint64 field.
func (e *LogEvent) Uint64(k string, v uint64) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendUint64(e.buf, v)
	return e
}

// Float64 appends a float64 field.
func (e *LogEvent) Float64(k string, v float64) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendFloat64(e.buf, v)
	return e
}

// Bool appends a boolean field.
func (e *LogEvent) Bool(k string, v bool) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, k)
	AppendBool(e.buf, v)
	return e
}

// Err appends an error field under the key "error". A nil error is logged as
// null.
func (e *LogEvent) Err(v error) *LogEvent {
	if e == nil {
		return nil
	}
	AppendKey(e.buf, "error")
	if v != nil {
		AppendString(e.buf, v.Error())
	} else {
		AppendNil(e.buf)
	}
	return e
}

// Caller appends source location information.
func (e *LogEvent) Caller(file string, function string, line int) *LogEvent {
	if e == nil {
		return nil
	}

	AppendKey(e.buf, "caller")
	e.buf.WriteByte('"')
	e.buf.WriteString(file)
	e.buf.WriteString(".")
	e.buf.WriteString(function)
	e.buf.WriteByte(':')
	e.buf.WriteString(strconv.Itoa(line))
	e.buf.WriteByte('"')

	return e
}

// LogObjectMarshaler lets a type control its own log representation.
type LogObjectMarshaler interface {
	MarshalLogObj(e *LogEvent)
}

// Obj appends a custom object implementing LogObjectMarshaler.
func (e *LogEvent) Obj(k string, v LogObjectMarshaler) *LogEvent {
	if e == nil {
		return nil
	}

	AppendKey(e.buf, k)
	if v == nil {
		AppendNil(e.buf)
	} else {
		v.MarshalLogObj(e)
	}
	return e
}

// Any appends an arbitrary value marshaled through encoding/json.
func (e *LogEvent) Any(k string, v any) *LogEvent {
	if e == nil {
		return nil
	}

	AppendKey(e.buf, k)
	AppendInterface(e.buf, v)
	return e
}

// Msg appends the final message text and emits the event.
func (e *LogEvent) Msg(v string) {
	if e == nil {
		return
	}
	e.Str("msg", v)
	e.End()
}

// End finalizes the event and routes it to the logger's appenders. Msg calls
// this automatically.
func (e *LogEvent) End() {
	if e == nil {
		return
	}

	AppendEndMarker(e.buf)
	AppendLineBreak(e.buf)

	e.logger.OnEventEnd(e)
}
