package backend

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

const (
	// TimestampLayout is the wire format of every timestamp column. It is
	// fixed-width UTC so that lexical order equals time order.
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
	// DateLayout is the wire format of calendar-day columns.
	DateLayout = "2006-01-02"
)

// Row is one record in wire format: snake_case column names mapped to
// nullable column values.
type Row map[string]any

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(value string) (time.Time, error) {
	if parsed, err := time.Parse(TimestampLayout, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return parsed.UTC(), nil
}

// Decoder reads typed values out of a Row. The first failure sticks and is
// reported by Err; later reads return zero values.
type Decoder struct {
	row Row
	err error
}

func NewDecoder(row Row) *Decoder {
	return &Decoder{row: row}
}

func (decoder *Decoder) Err() error {
	return decoder.err
}

func (decoder *Decoder) fail(column string, expected string, value any) {
	if decoder.err == nil {
		decoder.err = fmt.Errorf("column %q: expected %s, got %T", column, expected, value)
	}
}

func (decoder *Decoder) value(column string) (any, bool) {
	if decoder.err != nil {
		return nil, false
	}
	value, ok := decoder.row[column]
	if !ok {
		decoder.err = fmt.Errorf("column %q missing from row", column)
		return nil, false
	}
	return value, true
}

func (decoder *Decoder) String(column string) string {
	value, ok := decoder.value(column)
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	}
	decoder.fail(column, "string", value)
	return ""
}

func (decoder *Decoder) OptionalString(column string) *string {
	value, ok := decoder.value(column)
	if !ok || value == nil {
		return nil
	}
	result := decoder.String(column)
	if decoder.err != nil {
		return nil
	}
	return &result
}

func (decoder *Decoder) Int(column string) int {
	value, ok := decoder.value(column)
	if !ok {
		return 0
	}
	switch typed := value.(type) {
	case int64:
		return int(typed)
	case int:
		return typed
	case float64:
		if typed == math.Trunc(typed) {
			return int(typed)
		}
	}
	decoder.fail(column, "integer", value)
	return 0
}

func (decoder *Decoder) OptionalInt(column string) *int {
	value, ok := decoder.value(column)
	if !ok || value == nil {
		return nil
	}
	result := decoder.Int(column)
	if decoder.err != nil {
		return nil
	}
	return &result
}

func (decoder *Decoder) Float(column string) float64 {
	value, ok := decoder.value(column)
	if !ok {
		return 0
	}
	switch typed := value.(type) {
	case float64:
		return typed
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	}
	decoder.fail(column, "number", value)
	return 0
}

func (decoder *Decoder) Bool(column string) bool {
	value, ok := decoder.value(column)
	if !ok {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case int64:
		return typed != 0
	case int:
		return typed != 0
	}
	decoder.fail(column, "boolean", value)
	return false
}

func (decoder *Decoder) Time(column string) time.Time {
	text := decoder.String(column)
	if decoder.err != nil {
		return time.Time{}
	}
	parsed, err := ParseTimestamp(text)
	if err != nil {
		decoder.err = fmt.Errorf("column %q: %w", column, err)
		return time.Time{}
	}
	return parsed
}

func (decoder *Decoder) OptionalTime(column string) *time.Time {
	value, ok := decoder.value(column)
	if !ok || value == nil {
		return nil
	}
	result := decoder.Time(column)
	if decoder.err != nil {
		return nil
	}
	return &result
}

// normalize converts application values into values the driver stores in
// wire format.
func normalize(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case bool:
		if typed {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(typed)
	case time.Time:
		return FormatTimestamp(typed)
	case string, int64, float64, []byte:
		return typed
	}

	reflected := reflect.ValueOf(value)
	if reflected.Kind() == reflect.Pointer {
		if reflected.IsNil() {
			return nil
		}
		return normalize(reflected.Elem().Interface())
	}
	switch reflected.Kind() {
	case reflect.String:
		return reflected.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflected.Int()
	case reflect.Float32, reflect.Float64:
		return reflected.Float()
	}
	return value
}
