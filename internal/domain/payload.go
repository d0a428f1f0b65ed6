package domain

import (
	"strconv"
	"strings"
)

// Webhook payloads vary in shape across providers and even across webhook
// versions of a single provider. The helpers below read values out of the
// opaque payload map, tolerating both snake_case and camelCase keys and the
// number/string ambiguity of decoded JSON. Callers pass snake_case keys.

// PayloadString returns the first present key as a string. JSON numbers are
// stringified ("123" for 123) because providers disagree on whether ids are
// numbers or strings.
func PayloadString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		for _, k := range keyVariants(key) {
			v, ok := payload[k]
			if !ok || v == nil {
				continue
			}
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// PayloadInt returns the first present key as an int. Strings that parse as
// integers are accepted.
func PayloadInt(payload map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		for _, k := range keyVariants(key) {
			v, ok := payload[k]
			if !ok || v == nil {
				continue
			}
			switch n := v.(type) {
			case float64:
				return int(n), true
			case int:
				return n, true
			case string:
				if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// PayloadMap returns the first present key as a nested map.
func PayloadMap(payload map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		for _, k := range keyVariants(key) {
			if m, ok := payload[k].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// Integral floats print without a decimal point.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// keyVariants returns the key itself plus its camelCase form.
func keyVariants(key string) []string {
	camel := snakeToCamel(key)
	if camel == key {
		return []string{key}
	}
	return []string{key, camel}
}

func snakeToCamel(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
