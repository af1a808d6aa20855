package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidScalar is returned when a value is not a string, number or boolean
var ErrInvalidScalar = errors.New("value must be a string, number or boolean")

// ScalarKind identifies which variant a Scalar holds
type ScalarKind uint8

const (
	KindInvalid ScalarKind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the JSON type name of the kind
func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// Scalar is a translation leaf value: exactly one of string, number or boolean.
// Nested objects, arrays and null cannot be represented.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	raw  string // original number literal, kept so 1.50 round-trips as 1.50
	b    bool
}

// StringValue creates a string scalar
func StringValue(s string) Scalar {
	return Scalar{kind: KindString, str: s}
}

// NumberValue creates a number scalar
func NumberValue(f float64) Scalar {
	return Scalar{kind: KindNumber, num: f}
}

// NumberLiteral creates a number scalar from a JSON number literal
func NumberLiteral(raw string) (Scalar, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Scalar{}, fmt.Errorf("invalid number literal %q: %w", raw, err)
	}
	return Scalar{kind: KindNumber, num: f, raw: raw}, nil
}

// BoolValue creates a boolean scalar
func BoolValue(b bool) Scalar {
	return Scalar{kind: KindBool, b: b}
}

// Kind returns the variant held by s
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsValid reports whether s holds a value
func (s Scalar) IsValid() bool { return s.kind != KindInvalid }

// TypeName returns "string", "number" or "boolean"
func (s Scalar) TypeName() string { return s.kind.String() }

// Str returns the string value and whether s is a string
func (s Scalar) Str() (string, bool) { return s.str, s.kind == KindString }

// Num returns the numeric value and whether s is a number
func (s Scalar) Num() (float64, bool) { return s.num, s.kind == KindNumber }

// Bool returns the boolean value and whether s is a boolean
func (s Scalar) Bool() (bool, bool) { return s.b, s.kind == KindBool }

// String renders the value the way it reads in a translation file, without quotes
func (s Scalar) String() string {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return s.numberText()
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

func (s Scalar) numberText() string {
	if s.raw != "" {
		return s.raw
	}
	if math.IsInf(s.num, 0) || math.IsNaN(s.num) {
		return "0"
	}
	return strconv.FormatFloat(s.num, 'f', -1, 64)
}

// Equal compares kind and value; number literals compare numerically
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindString:
		return s.str == o.str
	case KindNumber:
		return s.num == o.num
	case KindBool:
		return s.b == o.b
	default:
		return true
	}
}

// JSONLiteral returns the JSON source text for the value
func (s Scalar) JSONLiteral() string {
	switch s.kind {
	case KindString:
		return QuoteJSON(s.str)
	case KindNumber:
		return s.numberText()
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.kind == KindInvalid {
		return nil, ErrInvalidScalar
	}
	return []byte(s.JSONLiteral()), nil
}

// UnmarshalJSON implements json.Unmarshaler, rejecting objects, arrays and null
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidScalar
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StringValue(str)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*s = BoolValue(b)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		v, err := NumberLiteral(string(data))
		if err != nil {
			return err
		}
		*s = v
	default:
		return ErrInvalidScalar
	}
	return nil
}

// ScalarFromAny converts a decoded JSON value into a Scalar
func ScalarFromAny(v interface{}) (Scalar, error) {
	switch val := v.(type) {
	case string:
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	case float64:
		return NumberValue(val), nil
	case int:
		return NumberValue(float64(val)), nil
	case int64:
		return NumberValue(float64(val)), nil
	case json.Number:
		return NumberLiteral(val.String())
	case Scalar:
		if !val.IsValid() {
			return Scalar{}, ErrInvalidScalar
		}
		return val, nil
	default:
		return Scalar{}, fmt.Errorf("%w: got %T", ErrInvalidScalar, v)
	}
}

// QuoteJSON encodes s as a JSON string literal without HTML escaping
func QuoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
