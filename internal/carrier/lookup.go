package carrier

import (
	"fmt"
	"strconv"
)

// Lookup walks nested JSON objects and arrays decoded into any. Map keys are
// matched exactly; numeric path elements index into arrays. It reports false
// as soon as an element is missing or has the wrong shape.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, p := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[p]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// LookupString returns the string at path, formatting numbers as plain
// integers. Missing values yield "".
func LookupString(v any, path ...string) string {
	found, ok := Lookup(v, path...)
	if !ok {
		return ""
	}
	switch s := found.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// Find returns the first element of the array at path for which match holds.
func Find(v any, match func(any) bool, path ...string) (any, bool) {
	found, ok := Lookup(v, path...)
	if !ok {
		return nil, false
	}
	items, ok := found.([]any)
	if !ok {
		return nil, false
	}
	for _, item := range items {
		if match(item) {
			return item, true
		}
	}
	return nil, false
}
