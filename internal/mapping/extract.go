package mapping

// ExtractSingle pulls one record out of a decoded response body. It tries the
// known envelopes in order and falls back to the body itself. A nil result
// means no record-shaped data was found.
func ExtractSingle(body any) map[string]any {
	if m, ok := asMap(body); ok {
		if r, ok := asMap(m["reservation"]); ok {
			return r
		}
		if data, ok := asMap(m["data"]); ok {
			if r, ok := asMap(data["reservation"]); ok {
				return r
			}
		}
		if list, ok := m["data"].([]any); ok && len(list) > 0 {
			if r, ok := asMap(list[0]); ok {
				return r
			}
		}
		if result, ok := asMap(m["result"]); ok {
			if r, ok := asMap(result["reservation"]); ok {
				return r
			}
		}
		if len(m) == 0 {
			return nil
		}
		return m
	}
	if list, ok := body.([]any); ok && len(list) > 0 {
		if r, ok := asMap(list[0]); ok {
			return r
		}
	}
	return nil
}

// ExtractCollection pulls a list of records out of a decoded response body.
// Unrecognized shapes yield an empty list.
func ExtractCollection(body any) []map[string]any {
	if m, ok := asMap(body); ok {
		if list, ok := m["reservations"].([]any); ok {
			return mapsOf(list)
		}
		if list, ok := m["data"].([]any); ok {
			return mapsOf(list)
		}
		if result, ok := asMap(m["result"]); ok {
			if list, ok := result["reservations"].([]any); ok {
				return mapsOf(list)
			}
		}
		return []map[string]any{}
	}
	if list, ok := body.([]any); ok {
		return mapsOf(list)
	}
	return []map[string]any{}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func mapsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}
