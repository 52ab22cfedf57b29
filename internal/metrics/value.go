package metrics

import (
	"encoding/json"
	"strconv"
)

// Value is a derived metric that may be undefined, e.g. a mean over an empty
// sample set or a ratio with a zero denominator.
type Value struct {
	v       float64
	defined bool
}

// Undefined is the "no data" value.
var Undefined = Value{}

// Defined wraps a computed number.
func Defined(v float64) Value { return Value{v: v, defined: true} }

// Float64 returns the number and whether it is defined.
func (v Value) Float64() (float64, bool) { return v.v, v.defined }

// IsDefined reports whether the value holds a number.
func (v Value) IsDefined() bool { return v.defined }

// String formats the value with the shortest exact representation, or
// "undefined".
func (v Value) String() string {
	if !v.defined {
		return "undefined"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as Undefined.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}
