package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is one property of a JSON request body kept in raw form, so that
// an absent key, an explicit null and a value of the wrong type can each
// be reported with their own error code.
type Field struct {
	Set bool
	Raw json.RawMessage
}

func (f *Field) UnmarshalJSON(b []byte) error {
	f.Set = true
	f.Raw = append(f.Raw[:0], b...)
	return nil
}

// Value builds a present field from a Go value.  It is used by tests and
// by callers assembling requests in code.
func Value(v any) Field {
	b, err := json.Marshal(v)
	if err != nil {
		return Field{}
	}
	return Field{Set: true, Raw: b}
}

// Null reports an explicit JSON null.
func (f Field) Null() bool {
	return f.Set && bytes.Equal(bytes.TrimSpace(f.Raw), []byte("null"))
}

// Given reports a key that is present and not null.
func (f Field) Given() bool { return f.Set && !f.Null() }

// Str returns the value when it is a JSON string.
func (f Field) Str() (string, bool) {
	if !f.Given() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(f.Raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Truthy mirrors the loose "has a value" test used for optional inputs:
// absent, null, false, 0 and "" are all empty.
func (f Field) Truthy() bool {
	if !f.Given() {
		return false
	}
	switch s := strings.TrimSpace(string(f.Raw)); s {
	case "false", "0", `""`:
		return false
	}
	return true
}

// Text returns a string value, or the raw JSON for other scalars so that
// numbers sent for free-text columns are kept verbatim.
func (f Field) Text() (string, bool) {
	if s, ok := f.Str(); ok {
		return s, true
	}
	if !f.Given() {
		return "", false
	}
	raw := strings.TrimSpace(string(f.Raw))
	if raw == "" || raw[0] == '{' || raw[0] == '[' {
		return "", false
	}
	return raw, true
}

// ID parses a positive integer given either as a JSON number or a string
// of digits.
func (f Field) ID() (uint64, bool) {
	if !f.Given() {
		return 0, false
	}
	s, ok := f.Str()
	if !ok {
		s = string(bytes.TrimSpace(f.Raw))
	}
	return parseID(s)
}

// Int returns an integral JSON number.  Whole floats such as 50.0 count
// as integers; strings are rejected.
func (f Field) Int() (int, bool) {
	if !f.Given() || bytes.HasPrefix(bytes.TrimSpace(f.Raw), []byte(`"`)) {
		return 0, false
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(f.Raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i, true
	}
	v, err := n.Float64()
	if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// Bool returns a JSON boolean.
func (f Field) Bool() (bool, bool) {
	if !f.Given() {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(f.Raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Strings returns a JSON array of strings.
func (f Field) Strings() ([]string, bool) {
	if !f.Given() {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(f.Raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// parseID accepts decimal digits only, with surrounding spaces trimmed,
// and rejects zero.
func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// ParseID validates an id taken from a query string.
func ParseID(s string) (uint64, bool) { return parseID(s) }
