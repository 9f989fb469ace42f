// Package coerce converts loosely typed JSON values from the book backend
// into Go values. Numbers may arrive as JSON numbers or numeric strings.
// Values that cannot be converted yield the zero value and a warning, never
// a panic or a NaN.
package coerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Warnings collects conversion problems for one decoded document.
type Warnings []string

// Addf records a warning.
func (w *Warnings) Addf(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// unquote returns the text of a JSON string or the literal of a JSON number.
func unquote(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// String reads a string, or renders a number as its literal. Ids arrive
// both ways.
func String(raw json.RawMessage, field string, w *Warnings) string {
	if isNull(raw) {
		return ""
	}
	s, ok := unquote(raw)
	if !ok {
		w.Addf("%s: expected string or number, got %s", field, truncate(raw))
		return ""
	}
	return s
}

// Int reads a whole number from a number or numeric string. A float with a
// fractional part is rejected.
func Int(raw json.RawMessage, field string, w *Warnings) int {
	if isNull(raw) {
		return 0
	}
	s, ok := unquote(raw)
	if !ok || s == "" {
		w.Addf("%s: expected integer, got %s", field, truncate(raw))
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		w.Addf("%s: %q is not an integer", field, s)
		return 0
	}
	return int(f)
}

// Decimal reads a decimal from a number or numeric string.
func Decimal(raw json.RawMessage, field string, w *Warnings) decimal.Decimal {
	if isNull(raw) {
		return decimal.Zero
	}
	s, ok := unquote(raw)
	if !ok || s == "" {
		w.Addf("%s: expected number, got %s", field, truncate(raw))
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
	if err != nil {
		w.Addf("%s: %q is not a number", field, s)
		return decimal.Zero
	}
	return d
}

// Time reads an RFC 3339 timestamp or one of the formats the book backend
// emits. Unparseable values yield nil.
func Time(raw json.RawMessage, field string, w *Warnings) *time.Time {
	if isNull(raw) {
		return nil
	}
	s, ok := unquote(raw)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", time.RFC1123, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	w.Addf("%s: unrecognized time %q", field, s)
	return nil
}

// First returns the first field of obj, in the order given, that is present
// and not null.
func First(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, string) {
	for _, k := range keys {
		if raw, ok := obj[k]; ok && !isNull(raw) {
			if s, isStr := unquote(raw); isStr && s == "" && bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
				continue
			}
			return raw, k
		}
	}
	return nil, ""
}

func truncate(raw json.RawMessage) string {
	const limit = 40
	s := string(bytes.TrimSpace(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
