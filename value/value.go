package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Value is a single scalar cell of a row. The zero Value is null.
type Value struct {
	kind   Kind
	number float64
	text   string
	truth  bool
	date   time.Time
}

func Null() Value {
	return Value{kind: KindNull}
}

func Number(number float64) Value {
	return Value{kind: KindNumber, number: number}
}

func String(text string) Value {
	return Value{kind: KindString, text: text}
}

func Bool(truth bool) Value {
	return Value{kind: KindBool, truth: truth}
}

func Date(date time.Time) Value {
	return Value{kind: KindDate, date: date}
}

func (value Value) Kind() Kind {
	if value.kind == 0 {
		return KindNull
	}
	return value.kind
}

func (value Value) IsNull() bool {
	return value.Kind() == KindNull
}

// IsBlank reports whether the value is null or an empty string, the two cases every
// aggregation treats as "no data".
func (value Value) IsBlank() bool {
	switch value.Kind() {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(value.text) == ""
	default:
		return false
	}
}

func (value Value) AsNumber() (number float64, ok bool) {
	return value.number, value.Kind() == KindNumber
}

func (value Value) AsString() (text string, ok bool) {
	return value.text, value.Kind() == KindString
}

func (value Value) AsBool() (truth bool, ok bool) {
	return value.truth, value.Kind() == KindBool
}

func (value Value) AsDate() (date time.Time, ok bool) {
	return value.date, value.Kind() == KindDate
}

// Float coerces the value to a finite number. Blank values and strings that do not parse as
// numbers are not numeric. Booleans become 1/0 and dates their epoch milliseconds.
func (value Value) Float() (number float64, ok bool) {
	switch value.Kind() {
	case KindNumber:
		if math.IsNaN(value.number) || math.IsInf(value.number, 0) {
			return 0, false
		}
		return value.number, true
	case KindString:
		return ParseNumber(value.text)
	case KindBool:
		if value.truth {
			return 1, true
		}
		return 0, true
	case KindDate:
		return float64(value.date.UnixMilli()), true
	default:
		return 0, false
	}
}

// ParseNumber parses a trimmed decimal number, rejecting blanks and non-finite spellings.
func ParseNumber(text string) (number float64, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}

// Truthy follows the usual scripting rules: null, false, 0, NaN and "" are false.
func (value Value) Truthy() bool {
	switch value.Kind() {
	case KindNumber:
		return value.number != 0 && !math.IsNaN(value.number)
	case KindString:
		return value.text != ""
	case KindBool:
		return value.truth
	case KindDate:
		return true
	default:
		return false
	}
}

func (value Value) String() string {
	switch value.Kind() {
	case KindNumber:
		return FormatNumber(value.number)
	case KindString:
		return value.text
	case KindBool:
		return strconv.FormatBool(value.truth)
	case KindDate:
		return value.date.UTC().Format("2006-01-02T15:04:05.000Z")
	default:
		return ""
	}
}

func FormatNumber(number float64) string {
	switch {
	case math.IsNaN(number):
		return "NaN"
	case math.IsInf(number, 1):
		return "Infinity"
	case math.IsInf(number, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(number, 'f', -1, 64)
}

// DistinctKey identifies the value for distinct counting. Values of different kinds never
// share a key, so the number 1 and the string "1" count separately.
func (value Value) DistinctKey() string {
	return value.Kind().String() + ":" + value.String()
}

func (value Value) Equals(other Value) bool {
	return value.DistinctKey() == other.DistinctKey()
}

func (value Value) Any() any {
	switch value.Kind() {
	case KindNumber:
		return value.number
	case KindString:
		return value.text
	case KindBool:
		return value.truth
	case KindDate:
		return value.date
	default:
		return nil
	}
}

// FromAny converts a Go or database driver value into a Value. Pointers are dereferenced, and
// types without a direct mapping are rendered with fmt.
func FromAny(raw any) Value {
	switch raw := raw.(type) {
	case nil:
		return Null()
	case Value:
		return raw
	case float64:
		return Number(raw)
	case float32:
		return Number(float64(raw))
	case int:
		return Number(float64(raw))
	case int8:
		return Number(float64(raw))
	case int16:
		return Number(float64(raw))
	case int32:
		return Number(float64(raw))
	case int64:
		return Number(float64(raw))
	case uint:
		return Number(float64(raw))
	case uint8:
		return Number(float64(raw))
	case uint16:
		return Number(float64(raw))
	case uint32:
		return Number(float64(raw))
	case uint64:
		return Number(float64(raw))
	case json.Number:
		if number, err := raw.Float64(); err == nil {
			return Number(number)
		}
		return String(raw.String())
	case string:
		return String(raw)
	case []byte:
		return String(string(raw))
	case bool:
		return Bool(raw)
	case time.Time:
		return Date(raw)
	}

	reflected := reflect.ValueOf(raw)
	if reflected.Kind() == reflect.Pointer {
		if reflected.IsNil() {
			return Null()
		}
		return FromAny(reflected.Elem().Interface())
	}

	if stringer, ok := raw.(fmt.Stringer); ok {
		return String(stringer.String())
	}
	return String(fmt.Sprint(raw))
}
