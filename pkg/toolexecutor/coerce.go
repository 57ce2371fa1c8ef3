package toolexecutor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// validateParameters checks every declared parameter against the context and rewrites the
// context value into the declared shape. Absent optional parameters are set to nil.
func validateParameters(ec *ExecutionContext, params []ParameterDescriptor) error {
	for _, p := range params {
		data, found := ec.Get(p.Name)

		if !found {
			if p.Required {
				return fmt.Errorf("required parameter %s is missing", p.Name)
			}
			ec.Set(p.Name, nil)
			continue
		}

		if p.Type.IsTextual() {
			text := ToJSONString(data)
			if data != nil && p.Type.Kind == KindEnum && !containsString(p.Type.Values, text) {
				return fmt.Errorf("value %q for %s is not one of %v", text, p.Name, p.Type.Values)
			}
			ec.Set(p.Name, text)
			continue
		}

		if data == nil {
			continue
		}

		if p.Type.Kind == KindArray && isEnumerable(data) {
			converted, err := convertElements(data, itemType(p.Type))
			if err != nil {
				return fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			ec.Set(p.Name, converted)
			continue
		}

		if text, ok := data.(string); ok {
			value, err := Convert(text, p.Type)
			if err != nil {
				return fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			ec.Set(p.Name, value)
		}
	}

	return nil
}

// Convert parses text into the given type, either by scalar parsing or JSON decoding.
func Convert(data string, t TypeDescriptor) (interface{}, error) {
	switch t.Kind {
	case KindString, KindEnum:
		return data, nil
	case KindNumber:
		return strconv.ParseFloat(strings.TrimSpace(data), 64)
	case KindInteger:
		return strconv.Atoi(strings.TrimSpace(data))
	case KindBoolean:
		return strconv.ParseBool(strings.TrimSpace(data))
	case KindArray:
		var items []interface{}
		if err := json.Unmarshal([]byte(data), &items); err != nil {
			return nil, fmt.Errorf("failed to decode array: %w", err)
		}
		return convertElements(items, itemType(t))
	case KindObject:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		return obj, nil
	}

	return nil, fmt.Errorf("unsupported type %s", t)
}

// ToJSONString renders a value as text: primitives natively, everything else as JSON.
func ToJSONString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case error:
		return val.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(v)
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// IsJSONString reports whether s looks like a JSON object or array.
func IsJSONString(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// ToSlice returns the elements of an array-like value, or false when v is not enumerable.
// Strings are not enumerable.
func ToSlice(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	if !isEnumerable(v) {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	items := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func isEnumerable(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func itemType(t TypeDescriptor) TypeDescriptor {
	if t.Item == nil {
		return StringType
	}
	return *t.Item
}

func convertElements(data interface{}, item TypeDescriptor) (interface{}, error) {
	items, _ := ToSlice(data)

	switch item.Kind {
	case KindString, KindEnum:
		out := make([]string, len(items))
		for i, v := range items {
			out[i] = ToJSONString(v)
		}
		return out, nil
	case KindNumber:
		out := make([]float64, len(items))
		for i, v := range items {
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	case KindInteger:
		out := make([]int, len(items))
		for i, v := range items {
			n, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case KindBoolean:
		out := make([]bool, len(items))
		for i, v := range items {
			b, err := toBool(v)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = b
		}
		return out, nil
	}

	// Nested arrays and objects are passed through untouched.
	return items, nil
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot convert %T to number", v)
}

func toInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(val))
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%v is not an integer", val)
		}
		return int(val), nil
	case json.Number:
		n, err := val.Int64()
		return int(n), err
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32:
		return toInt(rv.Float())
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	}
	return false, fmt.Errorf("cannot convert %T to boolean", v)
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
