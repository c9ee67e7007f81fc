package utils

import "encoding/json"

// NormalizeJSON minifies JSON text for stable equality comparisons. Invalid
// JSON and empty input are returned unchanged.
func NormalizeJSON(s string) string {
	if len(s) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(b)
}
