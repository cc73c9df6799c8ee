package config

import (
	"encoding/json"
	"fmt"
)

// Options is a free-form bag for implementation-specific settings with typed
// accessors that fall back to a default when the key is missing or of the
// wrong type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64,
// YAML numbers as int.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// Rune returns the first rune of a string value, or def.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// StringSlice returns the string elements of an array value, or nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// UnmarshalJSON makes a missing or null object decode to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML converts yaml.v2's map[interface{}]interface{} nodes to
// string-keyed maps so accessors behave the same for both formats.
func (o *Options) UnmarshalYAML(unmarshal func(any) error) error {
	var tmp map[string]any
	if err := unmarshal(&tmp); err != nil {
		return err
	}
	out := make(Options, len(tmp))
	for k, v := range tmp {
		nv, err := normalizeYAML(v)
		if err != nil {
			return fmt.Errorf("options.%s: %w", k, err)
		}
		out[k] = nv
	}
	*o = out
	return nil
}

func normalizeYAML(v any) (any, error) {
	switch vv := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(vv))
		for k, x := range vv {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			nx, err := normalizeYAML(x)
			if err != nil {
				return nil, err
			}
			m[ks] = nx
		}
		return m, nil
	case []any:
		out := make([]any, len(vv))
		for i, x := range vv {
			nx, err := normalizeYAML(x)
			if err != nil {
				return nil, err
			}
			out[i] = nx
		}
		return out, nil
	default:
		return v, nil
	}
}
