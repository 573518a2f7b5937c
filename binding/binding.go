// Package binding substitutes ${path} references in document text with
// values from a JSON data object.
package binding

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrUnresolved is returned by Expand for a reference with no value.
var ErrUnresolved = errors.New("binding: unresolved reference")

// Interpolate replaces each ${path.to[0].value} in text with its value in
// data. References that cannot be resolved are left as written.
func Interpolate(text string, data any) string {
	out, _ := expand(text, data)
	return out
}

// Expand is Interpolate that fails on the first unresolved reference.
func Expand(text string, data any) (string, error) {
	out, missing := expand(text, data)
	if missing != "" {
		return out, fmt.Errorf("%w: ${%s}", ErrUnresolved, missing)
	}
	return out, nil
}

func expand(text string, data any) (string, string) {
	var missing string
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if v, ok := Resolve(data, path); ok && path != "" {
			return format(v)
		}
		if missing == "" {
			missing = path
		}
		return match
	})
	return out, missing
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Resolve walks a dotted path with optional [i] indexes through maps and
// slices as produced by encoding/json.
func Resolve(data any, path string) (any, bool) {
	cur := data
	for _, seg := range strings.Split(path, ".") {
		name, idx, ok := splitSegment(seg)
		if !ok {
			return nil, false
		}
		if name != "" {
			m, isMap := cur.(map[string]any)
			if !isMap {
				return nil, false
			}
			if cur, ok = m[name]; !ok {
				return nil, false
			}
		}
		for _, i := range idx {
			a, isSlice := cur.([]any)
			if !isSlice || i < 0 || i >= len(a) {
				return nil, false
			}
			cur = a[i]
		}
	}
	return cur, true
}

// splitSegment splits "rows[1][2]" into "rows" and [1 2].
func splitSegment(seg string) (string, []int, bool) {
	i := strings.IndexByte(seg, '[')
	if i < 0 {
		return seg, nil, true
	}
	name, rest := seg[:i], seg[i:]
	var idx []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		idx = append(idx, n)
		rest = rest[end+1:]
	}
	return name, idx, true
}
