// Package args provides utility functions for destructuring the keyword
// arguments a route handler receives.
package args

import "fmt"

// String extracts a string argument.
func String(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string", name)
	}
	return s, nil
}

// StringOr extracts a string argument, falling back to def.
func StringOr(args map[string]any, name, def string) string {
	if s, err := String(args, name); err == nil {
		return s
	}
	return def
}

// Number extracts a numeric argument. JSON numbers decode as float64.
func Number(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument %q is not a number", name)
	}
}

// Int extracts an integer argument.
func Int(args map[string]any, name string) (int, error) {
	n, err := Number(args, name)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Bool extracts a boolean argument.
func Bool(args map[string]any, name string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, fmt.Errorf("missing argument %q", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q is not a boolean", name)
	}
	return b, nil
}

// Object extracts a nested object argument.
func Object(args map[string]any, name string) (map[string]any, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", name)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not an object", name)
	}
	return m, nil
}

// Slice extracts an array argument.
func Slice(args map[string]any, name string) ([]any, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not an array", name)
	}
	return s, nil
}
