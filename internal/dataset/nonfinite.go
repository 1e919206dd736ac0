package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Metadata written by Python's json module may carry the bare literals NaN,
// Infinity and -Infinity, typically as fill values or attribute bounds.
var nonFiniteLiterals = []struct {
	lit   []byte
	value float64
}{
	{[]byte("-Infinity"), math.Inf(-1)},
	{[]byte("Infinity"), math.Inf(1)},
	{[]byte("NaN"), math.NaN()},
}

// nonFiniteMark prefixes the strings bare literals are rewritten to.
const nonFiniteMark = "\x00nonfinite:"

// decodeMetadata unmarshals a metadata document, accepting the non-finite
// literals. Decoded objects carry them as float64 values.
func decodeMetadata(b []byte, v *map[string]any) error {
	b, quoted := quoteNonFinite(b)
	if err := json.Unmarshal(b, v); err != nil {
		return err
	}
	if quoted {
		restoreNonFinite(*v)
	}
	return nil
}

// quoteNonFinite rewrites bare non-finite literals outside of strings into
// marked JSON strings. It reports whether anything was rewritten.
func quoteNonFinite(b []byte) ([]byte, bool) {
	if !bytes.Contains(b, []byte("NaN")) && !bytes.Contains(b, []byte("Infinity")) {
		return b, false
	}
	var out bytes.Buffer
	out.Grow(len(b) + 64)
	quoted := false
	inString, escaped := false, false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			out.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		matched := false
		for _, nf := range nonFiniteLiterals {
			if bytes.HasPrefix(b[i:], nf.lit) {
				out.WriteString(`"\u0000nonfinite:`)
				out.Write(nf.lit)
				out.WriteByte('"')
				i += len(nf.lit) - 1
				matched, quoted = true, true
				break
			}
		}
		if !matched {
			out.WriteByte(c)
		}
	}
	return out.Bytes(), quoted
}

// restoreNonFinite replaces marked strings in a decoded tree by their
// float values.
func restoreNonFinite(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = restoreNonFinite(e)
		}
	case []any:
		for i, e := range t {
			t[i] = restoreNonFinite(e)
		}
	case string:
		lit, ok := strings.CutPrefix(t, nonFiniteMark)
		if !ok {
			return t
		}
		for _, nf := range nonFiniteLiterals {
			if string(nf.lit) == lit {
				return nf.value
			}
		}
	}
	return v
}
