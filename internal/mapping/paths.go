package mapping

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Path is a sequence of nested keys. Numeric segments index into arrays.
type Path []string

// P builds a Path from a dotted expression such as "guest.phone_numbers.0".
func P(expr string) Path {
	return Path(strings.Split(expr, "."))
}

func (p Path) String() string { return strings.Join(p, ".") }

// DeepGet walks p through record. ok is false when any segment is missing.
func DeepGet(record map[string]any, p Path) (any, bool) {
	if len(p) == 0 || record == nil {
		return nil, false
	}
	var cur any = record
	for _, seg := range p {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// FirstOf returns the first path that resolves to a non-blank scalar, or def.
func FirstOf(record map[string]any, paths []Path, def string) string {
	for _, p := range paths {
		v, ok := DeepGet(record, p)
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			return s
		}
	}
	return def
}

// scalarString renders JSON scalars as trimmed strings. Objects, arrays and
// null are not scalars.
func scalarString(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case json.Number:
		return typed.String(), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}
