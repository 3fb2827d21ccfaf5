package log

import "strconv"

// callerInfo is an immutable, preformatted call-site label. The logger
// caches one instance per program counter, so the formatting cost is paid
// once per call site.
type callerInfo struct {
	file     string
	function string
	line     int
	label    string
}

var _unknownCallerInfo = newCallerInfo("unknown", "unknown", 0)

func newCallerInfo(file string, function string, line int) *callerInfo {
	return &callerInfo{
		file:     file,
		function: function,
		line:     line,
		label:    file + ":" + strconv.Itoa(line) + " " + function,
	}
}

func (c *callerInfo) String() string {
	return c.label
}
