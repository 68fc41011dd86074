package report

import (
	"fmt"
	"strings"
)

// ValidationError names the report field that failed validation and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid report field %s: %s", e.Field, e.Reason)
}

// TopLevelField returns the first segment of Field, e.g. "items" for "items[2].title".
func (e *ValidationError) TopLevelField() string {
	if i := strings.IndexAny(e.Field, ".["); i >= 0 {
		return e.Field[:i]
	}
	return e.Field
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

// typeName describes a decoded JSON value for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// present reports whether key exists with a non-null value.
func present(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return ok && v != nil
}

func requiredString(obj map[string]any, key, parent string) (string, error) {
	field := join(parent, key)
	if !present(obj, key) {
		return "", invalid(field, "is required")
	}
	s, ok := obj[key].(string)
	if !ok {
		return "", invalid(field, "must be a string, got %s", typeName(obj[key]))
	}
	if strings.TrimSpace(s) == "" {
		return "", invalid(field, "must not be empty")
	}
	return s, nil
}

func optionalString(obj map[string]any, key, parent string) (string, error) {
	if !present(obj, key) {
		return "", nil
	}
	s, ok := obj[key].(string)
	if !ok {
		return "", invalid(join(parent, key), "must be a string, got %s", typeName(obj[key]))
	}
	return s, nil
}

// stringField binds a report key to the struct field it fills.
type stringField struct {
	key string
	dst *string
}

// readStrings fills fields in order with read and returns the first error.
func readStrings(obj map[string]any, parent string, read func(map[string]any, string, string) (string, error), fields ...stringField) error {
	for _, f := range fields {
		s, err := read(obj, f.key, parent)
		if err != nil {
			return err
		}
		*f.dst = s
	}
	return nil
}

func requiredNumber(obj map[string]any, key, parent string) (float64, error) {
	field := join(parent, key)
	if !present(obj, key) {
		return 0, invalid(field, "is required")
	}
	n, ok := obj[key].(float64)
	if !ok {
		return 0, invalid(field, "must be a number, got %s", typeName(obj[key]))
	}
	return n, nil
}

func optionalStringList(obj map[string]any, key, parent string) ([]string, error) {
	if !present(obj, key) {
		return nil, nil
	}
	field := join(parent, key)
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, invalid(field, "must be an array of strings, got %s", typeName(obj[key]))
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, invalid(index(field, i), "must be a string, got %s", typeName(v))
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredObject(obj map[string]any, key, parent string) (map[string]any, error) {
	field := join(parent, key)
	if !present(obj, key) {
		return nil, invalid(field, "is required")
	}
	m, ok := obj[key].(map[string]any)
	if !ok {
		return nil, invalid(field, "must be an object, got %s", typeName(obj[key]))
	}
	return m, nil
}

// optionalObject returns nil without error when key is absent.
func optionalObject(obj map[string]any, key, parent string) (map[string]any, error) {
	if !present(obj, key) {
		return nil, nil
	}
	m, ok := obj[key].(map[string]any)
	if !ok {
		return nil, invalid(join(parent, key), "must be an object, got %s", typeName(obj[key]))
	}
	return m, nil
}

// optionalObjectList returns the elements of an array of objects, or nil when key is absent.
func optionalObjectList(obj map[string]any, key, parent string) ([]map[string]any, bool, error) {
	if !present(obj, key) {
		return nil, false, nil
	}
	field := join(parent, key)
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, true, invalid(field, "must be an array, got %s", typeName(obj[key]))
	}
	out := make([]map[string]any, 0, len(arr))
	for i, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, true, invalid(index(field, i), "must be an object, got %s", typeName(v))
		}
		out = append(out, m)
	}
	return out, true, nil
}

// enum matches a value case-insensitively against allowed and returns the canonical spelling.
type enum []string

func (e enum) match(s string) (string, bool) {
	for _, v := range e {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return v, true
		}
	}
	return "", false
}

func (e enum) required(obj map[string]any, key, parent string) (string, error) {
	s, err := requiredString(obj, key, parent)
	if err != nil {
		return "", err
	}
	v, ok := e.match(s)
	if !ok {
		return "", invalid(join(parent, key), "must be one of %s, got %q", strings.Join(e, ", "), s)
	}
	return v, nil
}

func (e enum) optional(obj map[string]any, key, parent string) (string, error) {
	s, err := optionalString(obj, key, parent)
	if err != nil || s == "" {
		return "", err
	}
	v, ok := e.match(s)
	if !ok {
		return "", invalid(join(parent, key), "must be one of %s, got %q", strings.Join(e, ", "), s)
	}
	return v, nil
}
