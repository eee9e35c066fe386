package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"hermannm.dev/wrap"
)

// Row maps field names to values, remembering the order in which fields were added.
type Row struct {
	keys   []string
	values map[string]Value
}

func NewRow(capacity int) Row {
	return Row{keys: make([]string, 0, capacity), values: make(map[string]Value, capacity)}
}

// RowOf builds a row from alternating key/value pairs, converting values with FromAny.
// Intended for tests and literals: RowOf("region", "EU", "revenue", 10).
func RowOf(pairs ...any) Row {
	row := NewRow(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}
		row.Set(key, FromAny(pairs[i+1]))
	}
	return row
}

func (row Row) Len() int {
	return len(row.keys)
}

func (row Row) Keys() []string {
	return row.keys
}

func (row Row) Get(key string) (Value, bool) {
	value, ok := row.values[key]
	return value, ok
}

// Set adds or replaces a field. Only to be used on rows under construction; rows handed to the
// engine are treated as immutable and transforms copy them with Clone first.
func (row *Row) Set(key string, value Value) {
	if row.values == nil {
		row.values = make(map[string]Value)
	}
	if _, exists := row.values[key]; !exists {
		row.keys = append(row.keys, key)
	}
	row.values[key] = value
}

func (row Row) Clone() Row {
	clone := NewRow(len(row.keys) + 1)
	for _, key := range row.keys {
		clone.Set(key, row.values[key])
	}
	return clone
}

// Each calls fn for every field in insertion order, stopping if fn returns false.
func (row Row) Each(fn func(key string, value Value) bool) {
	for _, key := range row.keys {
		if !fn(key, row.values[key]) {
			return
		}
	}
}

func (row Row) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, key := range row.keys {
		if i != 0 {
			buffer.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to encode row key '%s'", key)
		}
		buffer.Write(encodedKey)
		buffer.WriteByte(':')

		encodedValue, err := row.values[key].MarshalJSON()
		if err != nil {
			return nil, wrap.Errorf(err, "failed to encode value of field '%s'", key)
		}
		buffer.Write(encodedValue)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object, keeping key order. Nested objects and arrays are
// stored as their JSON text.
func (row *Row) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return wrap.Error(err, "failed to read start of row object")
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("expected row to be a JSON object")
	}

	*row = NewRow(8)
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return wrap.Error(err, "failed to read row key")
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected string key in row object, got %v", token)
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return wrap.Errorf(err, "failed to read value of field '%s'", key)
		}

		var fieldValue Value
		if err := fieldValue.UnmarshalJSON(raw); err != nil {
			return wrap.Errorf(err, "failed to decode value of field '%s'", key)
		}
		row.Set(key, fieldValue)
	}

	if _, err := decoder.Token(); err != nil && !errors.Is(err, io.EOF) {
		return wrap.Error(err, "failed to read end of row object")
	}
	return nil
}

func (value Value) MarshalJSON() ([]byte, error) {
	switch value.Kind() {
	case KindNumber:
		number, ok := value.Float()
		if !ok {
			return []byte("null"), nil
		}
		return json.Marshal(number)
	case KindString:
		return json.Marshal(value.text)
	case KindBool:
		return json.Marshal(value.truth)
	case KindDate:
		return json.Marshal(value.date.UTC().Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON maps JSON scalars onto values. Strings stay strings, also when they look like
// dates; date parsing is the field resolver's job.
func (value *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*value = Null()
		return nil
	}

	switch data[0] {
	case 'n':
		*value = Null()
	case 't', 'f':
		var truth bool
		if err := json.Unmarshal(data, &truth); err != nil {
			return err
		}
		*value = Bool(truth)
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*value = String(text)
	case '{', '[':
		*value = String(string(data))
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return err
		}
		*value = FromAny(number)
	}
	return nil
}
