package tabular

import "strconv"

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	// KindNull marks an absent value. CSV cells never produce nulls
	// (an empty cell is an empty string); Parquet nulls do.
	KindNull Kind = iota
	// KindString holds free text.
	KindString
	// KindNumber holds a float64.
	KindNumber
)

// Value is one table cell. The zero Value is null.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
}

// StringValue returns a string-kinded Value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue returns a number-kinded Value.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// NullValue returns the null Value.
func NullValue() Value {
	return Value{Kind: KindNull}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String renders the value for display and delimited-text output.
// Numbers render without trailing zeros; null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Float returns the numeric content of the value. String values are
// parsed on a best-effort basis; the second return reports success.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
