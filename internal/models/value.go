package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is displayed for null values.
const NotAvailable = "N/A"

// Value is a nullable numeric-or-text field (actual, forecast, previous).
// The JSON kind is kept so a value round-trips the way the provider sent it.
type Value struct {
	text    string
	numeric bool
	valid   bool
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{}
}

// TextValue returns a text value such as "1.2%".
func TextValue(s string) Value {
	return Value{text: s, valid: true}
}

// NumberValue returns a numeric value.
func NumberValue(d decimal.Decimal) Value {
	return Value{text: d.String(), numeric: true, valid: true}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return !v.valid
}

// String returns the raw text, or "" when null.
func (v Value) String() string {
	return v.text
}

// Display returns the text, or N/A when null or blank.
func (v Value) Display() string {
	if !v.valid || strings.TrimSpace(v.text) == "" {
		return NotAvailable
	}
	return v.text
}

var suffixMultipliers = map[byte]decimal.Decimal{
	'K': decimal.NewFromInt(1_000),
	'M': decimal.NewFromInt(1_000_000),
	'B': decimal.NewFromInt(1_000_000_000),
	'T': decimal.NewFromInt(1_000_000_000_000),
}

// Number parses the numeric content of the value, understanding a trailing
// percent sign, thousands separators and K/M/B/T magnitude suffixes.
func (v Value) Number() (decimal.Decimal, bool) {
	if !v.valid {
		return decimal.Zero, false
	}
	s := strings.TrimSpace(v.text)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return decimal.Zero, false
	}

	mult := decimal.NewFromInt(1)
	if m, ok := suffixMultipliers[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(mult), true
}

// MarshalJSON writes null, a bare number, or a string.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	if v.numeric {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts null, numbers and strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Value{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("value must be null, number or string: %w", err)
		}
		*v = Value{text: n.String(), numeric: true, valid: true}
	}
	return nil
}

// Surprise classifies an actual print against its forecast.
type Surprise int

const (
	SurpriseUnknown Surprise = iota
	SurpriseInline
	SurpriseBeat
	SurpriseMiss
)

// Compare returns how actual compares with forecast. Non-numeric or missing
// values yield SurpriseUnknown.
func Compare(actual, forecast Value) Surprise {
	a, ok := actual.Number()
	if !ok {
		return SurpriseUnknown
	}
	f, ok := forecast.Number()
	if !ok {
		return SurpriseUnknown
	}
	switch a.Cmp(f) {
	case 1:
		return SurpriseBeat
	case -1:
		return SurpriseMiss
	default:
		return SurpriseInline
	}
}
