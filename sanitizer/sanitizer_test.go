package sanitizer

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizer(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		policy   PolicyPreset
		expected string
	}{
		// Raw policy
		{
			name:     "raw passes through",
			input:    "hello\x00world\n",
			policy:   PolicyRaw,
			expected: "hello\x00world\n",
		},

		// Txt policy
		{
			name:     "txt hex encodes null byte",
			input:    "test\x00data",
			policy:   PolicyTxt,
			expected: "test<00>data",
		},
		{
			name:     "txt hex encodes control chars",
			input:    "bell\x07tab\x09form\x0c",
			policy:   PolicyTxt,
			expected: "bell<07>tab<09>form<0c>",
		},
		{
			name:     "txt keeps a record on one line",
			input:    "first\nsecond\r\n",
			policy:   PolicyTxt,
			expected: "first<0a>second<0d><0a>",
		},
		{
			name:     "txt preserves printable",
			input:    "Hello World 123!@#",
			policy:   PolicyTxt,
			expected: "Hello World 123!@#",
		},
		{
			name:     "txt hex encodes multi-byte control",
			input:    "line1\u0085line2",
			policy:   PolicyTxt,
			expected: "line1<c285>line2",
		},
		{
			name:     "txt preserves UTF-8",
			input:    "Hello 世界 ✓",
			policy:   PolicyTxt,
			expected: "Hello 世界 ✓",
		},
		{
			name:     "txt hex encodes invalid UTF-8",
			input:    "bad\xffbyte",
			policy:   PolicyTxt,
			expected: "bad<ff>byte",
		},
		{
			name:     "txt neutralizes ANSI escapes",
			input:    "\x1b[31mred",
			policy:   PolicyTxt,
			expected: "<1b>[31mred",
		},

		// JSON policy
		{
			name:     "json escapes quotes and backslashes",
			input:    `say "hi" \o/`,
			policy:   PolicyJSON,
			expected: `say \"hi\" \\o/`,
		},
		{
			name:     "json escapes common control chars",
			input:    "line1\nline2\ttab\rreturn",
			policy:   PolicyJSON,
			expected: `line1\nline2\ttab\rreturn`,
		},
		{
			name:     "json unicode escapes other controls",
			input:    "nul\x00del\x7f",
			policy:   PolicyJSON,
			expected: `nul\u0000del\u007f`,
		},
		{
			name:     "json preserves UTF-8",
			input:    "été ✓",
			policy:   PolicyJSON,
			expected: "été ✓",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := ForPolicy(tc.policy)
			assert.Equal(t, tc.expected, s.Sanitize(tc.input))
			assert.Equal(t, "prefix:"+tc.expected, string(s.Append([]byte("prefix:"), tc.input)))
		})
	}
}

// TestJSONPolicyProducesValidLiteral verifies the json policy output decodes back to the input
func TestJSONPolicyProducesValidLiteral(t *testing.T) {
	input := "quote\" slash\\ newline\n nul\x00 bell\x07 ünï"
	escaped := ForPolicy(PolicyJSON).Sanitize(input)

	var decoded string
	require.NoError(t, json.Unmarshal([]byte(`"`+escaped+`"`), &decoded))
	assert.Equal(t, input, decoded)
}

// TestCustomRules verifies rule ordering and the strip transform
func TestCustomRules(t *testing.T) {
	s := New().
		Rule(FilterJSONSpecial, TransformStrip).
		Rule(FilterNonPrintable, TransformHexEncode)

	assert.Equal(t, `ab<0a>c`, s.Sanitize("a\"b\n\\c"))

	// Unknown preset adds nothing
	assert.Equal(t, "a\nb", New().Policy("unknown").Sanitize("a\nb"))
}

// TestTruncate verifies truncation never splits a multi-byte sequence
func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "abc", 10, "abc"},
		{"exact length", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"cut inside two-byte rune", "aé", 2, "a"},
		{"cut after two-byte rune", "aéb", 3, "aé"},
		{"cut inside three-byte rune", "ab✓", 4, "ab"},
		{"zero max", "abc", 0, ""},
		{"negative max", "abc", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.max)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	b := Truncate([]byte("ab✓"), 4)
	assert.Equal(t, []byte("ab"), b)

	long := strings.Repeat("✓", 200) // 600 bytes
	got := Truncate(long, 512)
	assert.LessOrEqual(t, len(got), 512)
	assert.Equal(t, 510, len(got))
	assert.True(t, utf8.ValidString(got))
}

func BenchmarkSanitizeTxt(b *testing.B) {
	s := ForPolicy(PolicyTxt)
	buf := make([]byte, 0, 256)
	input := "request served in 12ms path=/api/v1/items status=200\x00"
	for i := 0; i < b.N; i++ {
		buf = s.Append(buf[:0], input)
	}
}
