// Package sanitizer rewrites log text so that a record always occupies one
// well-formed line, using composable filter and transform rules.
package sanitizer

import (
	"encoding/hex"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for character matching
const (
	FilterNonPrintable uint64 = 1 << iota // runes strconv.IsPrint rejects
	FilterControl                         // unicode.IsControl
	FilterJSONSpecial                     // '"' and '\\'
)

// Transform flags
const (
	TransformStrip      uint64 = 1 << iota // drop the rune
	TransformHexEncode                     // UTF-8 bytes as "<xx..>"
	TransformJSONEscape                    // backslash escapes, \u00XX for the rest
)

// PolicyPreset names a pre-configured rule set
type PolicyPreset string

const (
	PolicyRaw  PolicyPreset = "raw"  // passthrough
	PolicyTxt  PolicyPreset = "txt"  // plain text log lines
	PolicyJSON PolicyPreset = "json" // content of a JSON string literal
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:  {},
	PolicyTxt:  {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON: {{filter: FilterControl | FilterJSONSpecial, transform: TransformJSONEscape}},
}

// Sanitizer applies rules in insertion order; the first matching rule wins
type Sanitizer struct {
	rules []rule
}

// New creates a passthrough sanitizer
func New() *Sanitizer {
	return &Sanitizer{}
}

// ForPolicy is shorthand for New().Policy(p)
func ForPolicy(p PolicyPreset) *Sanitizer {
	return New().Policy(p)
}

// Rule appends a custom rule
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends the rules of a preset. Unknown presets add nothing.
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if rules, ok := policyRules[preset]; ok {
		s.rules = append(s.rules, rules...)
	}
	return s
}

// Append writes the sanitized form of text to dst and returns the extended slice.
// Invalid UTF-8 bytes match FilterNonPrintable and FilterControl.
func (s *Sanitizer) Append(dst []byte, text string) []byte {
	if len(s.rules) == 0 {
		return append(dst, text...)
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		raw := text[i : i+size]
		invalid := r == utf8.RuneError && size == 1
		i += size

		matched := false
		for _, rl := range s.rules {
			if matchesFilter(r, invalid, rl.filter) {
				dst = applyTransform(dst, r, raw, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			dst = append(dst, raw...)
		}
	}
	return dst
}

// Sanitize returns the sanitized form of text
func (s *Sanitizer) Sanitize(text string) string {
	if len(s.rules) == 0 {
		return text
	}
	return string(s.Append(make([]byte, 0, len(text)+8), text))
}

func matchesFilter(r rune, invalid bool, mask uint64) bool {
	if mask&FilterNonPrintable != 0 && (invalid || !strconv.IsPrint(r)) {
		return true
	}
	if mask&FilterControl != 0 && (invalid || unicode.IsControl(r)) {
		return true
	}
	if mask&FilterJSONSpecial != 0 && (r == '"' || r == '\\') {
		return true
	}
	return false
}

// applyTransform handles one matched rune; raw is its original encoding
func applyTransform(dst []byte, r rune, raw string, transform uint64) []byte {
	switch {
	case transform&TransformStrip != 0:
		return dst

	case transform&TransformHexEncode != 0:
		dst = append(dst, '<')
		dst = hex.AppendEncode(dst, []byte(raw))
		return append(dst, '>')

	case transform&TransformJSONEscape != 0:
		switch r {
		case '\n':
			return append(dst, '\\', 'n')
		case '\r':
			return append(dst, '\\', 'r')
		case '\t':
			return append(dst, '\\', 't')
		case '\b':
			return append(dst, '\\', 'b')
		case '\f':
			return append(dst, '\\', 'f')
		case '"', '\\':
			return append(dst, '\\', byte(r))
		}
		if r < 0x10000 {
			const digits = "0123456789abcdef"
			return append(dst, '\\', 'u',
				digits[r>>12&0xF], digits[r>>8&0xF], digits[r>>4&0xF], digits[r&0xF])
		}
		return append(dst, raw...)
	}
	return append(dst, raw...)
}

// Truncate shortens s to at most max bytes without splitting a UTF-8 sequence
func Truncate[T string | []byte](s T, max int) T {
	if max <= 0 {
		return s[:0]
	}
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}
