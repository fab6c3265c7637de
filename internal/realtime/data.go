package realtime

import "strings"

// CloneData deep-copies decoded JSON data so callers can mutate the result
// without touching the original.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return cloneValue(data).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// FieldAt resolves a dotted object path ("checkingConfig.shareEnabled").
// Array elements are not addressable here.
func FieldAt(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, k := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}
