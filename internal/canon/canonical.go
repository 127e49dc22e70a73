// Package canon produces canonical JSON and content digests for trace
// snapshots. Two semantically equal values always marshal to identical
// bytes: object keys are sorted by UTF-16 code units, strings are NFC
// normalized, and no insignificant whitespace is emitted.
//
// The value model is deliberately small: strings, ints, bools, []any, and
// map[string]any. Floats and nulls are rejected so digests never depend on
// float formatting or null semantics.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Marshal renders v as canonical JSON.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("canon: null values are not allowed")
	case string:
		return marshalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case float32, float64:
		return fmt.Errorf("canon: float values are not allowed")
	case []any:
		return marshalArray(buf, val)
	case map[string]any:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("canon: unsupported type %T", v)
	}
}

// marshalString writes s as a JSON string. The value is NFC normalized
// first so visually identical strings share one byte form, and the
// encoding uses the shortest escapes: no HTML escaping, and the line
// separators U+2028/U+2029 stay literal.
func marshalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var enc bytes.Buffer
	encoder := json.NewEncoder(&enc)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalized); err != nil {
		return fmt.Errorf("canon: encoding string: %w", err)
	}

	// Encoder.Encode appends a newline after the value.
	data := bytes.TrimSuffix(enc.Bytes(), []byte("\n"))
	buf.Write(unescapeSeparators(data))
	return nil
}

// unescapeSeparators rewrites \u2028 and \u2029 escapes to their literal
// UTF-8 bytes. encoding/json escapes the two line separators even with
// HTML escaping off, but canonical form wants the shortest encoding.
func unescapeSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == '\\' && i+1 < len(data) {
			if i+6 <= len(data) && data[i+1] == 'u' &&
				data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
				(data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 6
				continue
			}
			// Copy the full escape pair so an escaped backslash followed
			// by literal "u202x" text is never rewritten.
			out = append(out, data[i], data[i+1])
			i += 2
			continue
		}
		out = append(out, data[i])
		i++
	}
	return out
}

func marshalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalValue(buf, elem); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	buf.WriteByte('{')
	for i, key := range sortedKeys(obj) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, obj[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// sortedKeys returns obj's keys ordered by UTF-16 code units, the ordering
// RFC 8785 specifies for canonical JSON objects.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by their UTF-16 code unit sequences. This
// differs from Go's native byte ordering for strings containing
// supplementary-plane characters, which encode as surrogate pairs.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))

	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}
