// Package formatter renders log records as text or JSON lines and converts
// producer arguments into record text.
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/slogger/sanitizer"
)

// Output formats
const (
	FormatTxt  = "txt"
	FormatJSON = "json"
)

// TimestampLayout is the txt line timestamp, microsecond precision, local time
const TimestampLayout = "2006-01-02 15:04:05.000000"

// jsonTimestampLayout is RFC 3339 with microseconds
const jsonTimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// dumper renders composite values on one line with stable map ordering
var dumper = &spew.ConfigState{
	Indent:                  "",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          false,
	SortKeys:                true,
}

// Formatter renders records into a reusable buffer. Not safe for concurrent use.
type Formatter struct {
	sanitizer *sanitizer.Sanitizer
	jsonSan   *sanitizer.Sanitizer
	format    string
	buf       []byte
}

// New creates a txt formatter. The optional sanitizer cleans message text in txt output.
func New(s ...*sanitizer.Sanitizer) *Formatter {
	san := sanitizer.New()
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	}
	return &Formatter{
		sanitizer: san,
		jsonSan:   sanitizer.ForPolicy(sanitizer.PolicyJSON),
		format:    FormatTxt,
		buf:       make([]byte, 0, 1024),
	}
}

// Type sets the output format, "txt" or "json". Anything else selects txt.
func (f *Formatter) Type(format string) *Formatter {
	if format == FormatJSON {
		f.format = FormatJSON
	} else {
		f.format = FormatTxt
	}
	return f
}

// Format renders one record, newline terminated.
// The returned slice is reused by the next call.
func (f *Formatter) Format(ts time.Time, level string, tid int, text string) []byte {
	f.buf = f.buf[:0]
	if f.format == FormatJSON {
		f.buf = f.appendJSON(f.buf, ts, level, tid, text)
	} else {
		f.buf = f.appendTxt(f.buf, ts, level, tid, text)
	}
	return f.buf
}

// FormatTxt renders one record as a txt line regardless of the configured format
func (f *Formatter) FormatTxt(ts time.Time, level string, tid int, text string) []byte {
	f.buf = f.appendTxt(f.buf[:0], ts, level, tid, text)
	return f.buf
}

// appendTxt writes "YYYY-MM-DD HH:MM:SS.ffffff [LEVEL] [T<tid>] text\n"
func (f *Formatter) appendTxt(dst []byte, ts time.Time, level string, tid int, text string) []byte {
	dst = AppendTimestamp(dst, ts)
	dst = append(dst, " ["...)
	dst = append(dst, level...)
	dst = append(dst, "] [T"...)
	dst = strconv.AppendInt(dst, int64(tid), 10)
	dst = append(dst, "] "...)
	dst = f.sanitizer.Append(dst, text)
	return append(dst, '\n')
}

func (f *Formatter) appendJSON(dst []byte, ts time.Time, level string, tid int, text string) []byte {
	dst = append(dst, `{"time":"`...)
	dst = ts.Local().AppendFormat(dst, jsonTimestampLayout)
	dst = append(dst, `","level":"`...)
	dst = append(dst, level...)
	dst = append(dst, `","tid":`...)
	dst = strconv.AppendInt(dst, int64(tid), 10)
	dst = append(dst, `,"msg":"`...)
	dst = f.jsonSan.Append(dst, text)
	return append(dst, "\"}\n"...)
}

// AppendTimestamp writes ts in local time using TimestampLayout
func AppendTimestamp(dst []byte, ts time.Time) []byte {
	return ts.Local().AppendFormat(dst, TimestampLayout)
}

// AppendArgs converts producer arguments into record text, space separated.
// Scalars use their natural text form; composite values are dumped on one line.
func AppendArgs(dst []byte, args ...any) []byte {
	for i, arg := range args {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = appendValue(dst, arg)
	}
	return dst
}

func appendValue(dst []byte, v any) []byte {
	switch val := v.(type) {
	case string:
		return append(dst, val...)
	case []byte:
		return append(dst, val...)
	case int:
		return strconv.AppendInt(dst, int64(val), 10)
	case int32:
		return strconv.AppendInt(dst, int64(val), 10)
	case int64:
		return strconv.AppendInt(dst, val, 10)
	case uint:
		return strconv.AppendUint(dst, uint64(val), 10)
	case uint64:
		return strconv.AppendUint(dst, val, 10)
	case float32:
		return strconv.AppendFloat(dst, float64(val), 'f', -1, 32)
	case float64:
		return strconv.AppendFloat(dst, val, 'f', -1, 64)
	case bool:
		return strconv.AppendBool(dst, val)
	case nil:
		return append(dst, "nil"...)
	case time.Time:
		return AppendTimestamp(dst, val)
	case time.Duration:
		return append(dst, val.String()...)
	case error:
		return append(dst, val.Error()...)
	case fmt.Stringer:
		return append(dst, val.String()...)
	default:
		return append(dst, compactDump(val)...)
	}
}

// compactDump renders composite values through spew's dumper on a single line
func compactDump(v any) string {
	s := dumper.Sdump(v)
	return strings.Join(strings.Fields(s), " ")
}
