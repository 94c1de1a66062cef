package services

// DefaultCollectionKeys are probed, in order, before any resource-specific key.
var DefaultCollectionKeys = []string{"data", "items"}

// Collection extracts the list of objects from a list-endpoint body.
//
// An array body is used directly. An object body is probed for [DefaultCollectionKeys] and then keys,
// and the first array found wins. Anything else yields an empty, non-nil slice. Non-object elements are dropped.
func Collection(body any, keys ...string) []map[string]any {
	switch v := body.(type) {
	case []any:
		return objects(v)
	case map[string]any:
		probe := append(append([]string{}, DefaultCollectionKeys...), keys...)
		for _, key := range probe {
			if arr, ok := v[key].([]any); ok {
				return objects(arr)
			}
		}
	}
	return []map[string]any{}
}

// Object unwraps a single-record body such as {"book": {...}} or {"data": {...}}.
// A body without a wrapper is returned as is.
func Object(body any, keys ...string) (map[string]any, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range append(append([]string{}, keys...), "data") {
		if inner, ok := obj[key].(map[string]any); ok {
			return inner, true
		}
	}
	return obj, true
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
