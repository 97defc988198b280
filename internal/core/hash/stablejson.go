package hash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// StableJSON produces the canonical encoding used everywhere the core
// hashes a composite value: every object's keys are sorted
// lexicographically, arrays preserve order, numbers are minimal decimal,
// and no trailing newline is appended. Two values that are
// map-equal-after-reordering always produce byte-identical output, so
// the same logical value hashes the same regardless of how it was built.
func StableJSON(v any) ([]byte, error) {
	// Round-trip through encoding/json first so that struct tags, custom
	// MarshalJSON methods, etc. are honored, then canonicalize the
	// resulting generic value.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stablejson: marshal: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("stablejson: decode: %w", err)
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HashValue hashes v's stable-JSON encoding with SHA-256.
func HashValue(v any) (string, error) {
	b, err := StableJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		return encodeNumber(buf, t)
	case float64:
		return encodeNumber(buf, json.Number(strconv.FormatFloat(t, 'g', -1, 64)))
	case string:
		encodeString(buf, t)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("stablejson: unsupported type %T", v)
	}
	return nil
}

func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("stablejson: number: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("stablejson: non-finite number %v", f)
	}
	// Minimal decimal form: integers with no fractional part are emitted
	// without a decimal point.
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(n.String())
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
