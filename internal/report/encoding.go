package report

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Indent is the indentation used for every report file.
const Indent = "  "

// Encode produces byte-identical, indented JSON for identical input:
//   - object keys sorted (struct fields are encoded by their json names)
//   - string slices sorted
//   - nil and empty slices written as []
//   - a trailing newline
func Encode(v interface{}) ([]byte, error) {
	normalized := normalizeValue(reflect.ValueOf(v))

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", Indent)
	if err := encoder.Encode(normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeValue recursively normalizes a value for deterministic encoding
func normalizeValue(val reflect.Value) interface{} {
	if !val.IsValid() {
		return nil
	}

	// Dereference pointers and interfaces
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		return normalizeMap(val)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(val)
	case reflect.Struct:
		return normalizeStruct(val)
	default:
		return val.Interface()
	}
}

// normalizeMap converts a map to a string-keyed map; encoding/json sorts
// its keys.
func normalizeMap(val reflect.Value) map[string]interface{} {
	result := make(map[string]interface{}, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		result[iter.Key().String()] = normalizeValue(iter.Value())
	}
	return result
}

// normalizeSlice normalizes a slice or array. Strings are sorted so set-like
// fields encode identically regardless of how they were collected.
func normalizeSlice(val reflect.Value) []interface{} {
	length := val.Len()
	order := make([]int, length)
	for i := range order {
		order[i] = i
	}
	if val.Type().Elem().Kind() == reflect.String {
		sort.SliceStable(order, func(i, j int) bool {
			return val.Index(order[i]).String() < val.Index(order[j]).String()
		})
	}

	result := make([]interface{}, length)
	for i, idx := range order {
		result[i] = normalizeValue(val.Index(idx))
	}
	return result
}

// normalizeStruct converts a struct to a map keyed by json field names.
func normalizeStruct(val reflect.Value) map[string]interface{} {
	result := make(map[string]interface{})
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		tagName, omitEmpty := parseJSONTag(jsonTag)
		if tagName == "" {
			tagName = field.Name
		}

		fieldVal := val.Field(i)
		if omitEmpty && fieldVal.IsZero() {
			continue
		}
		result[tagName] = normalizeValue(fieldVal)
	}

	return result
}

// parseJSONTag parses a JSON struct tag
func parseJSONTag(tag string) (name string, omitEmpty bool) {
	if tag == "" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty
}
