package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Ratio is a float64 that may legitimately be +Inf (e.g. profit factor without losses).
// JSON: ±Inf encode as "Infinity"/"-Infinity", NaN as null.
type Ratio float64

// Inf is the +Inf ratio
func Inf() Ratio {
	return Ratio(math.Inf(1))
}

// Float returns the underlying value
func (r Ratio) Float() float64 {
	return float64(r)
}

// IsInf reports ±Inf
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 0)
}

// IsFinite reports a value that is neither Inf nor NaN
func (r Ratio) IsFinite() bool {
	f := float64(r)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// String formats the ratio for console output
func (r Ratio) String() string {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	case math.IsNaN(f):
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Ratio) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "null":
		*r = Ratio(math.NaN())
		return nil
	case `"Infinity"`, `"+Infinity"`, `"inf"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`, `"-inf"`:
		*r = Ratio(math.Inf(-1))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid ratio %s: %w", s, err)
	}
	*r = Ratio(f)
	return nil
}
