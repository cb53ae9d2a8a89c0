package tether

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPath is returned when an attribute path cannot be parsed.
var ErrInvalidPath = errors.New("invalid attribute path")

// validate is the shared validator instance.
var validate = validator.New()

// PathSeparator separates the segments of a nested attribute path.
const PathSeparator = "."

// Path is a parsed attribute path such as "server.tls.enabled".
type Path []string

// ParsePath splits s into segments. Every segment must be non-empty.
func ParsePath(s string) (Path, error) {
	if err := validate.Var(s, "required"); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPath, s, err)
	}
	segments := strings.Split(s, PathSeparator)
	for i, seg := range segments {
		if err := validate.Var(seg, "required"); err != nil {
			return nil, fmt.Errorf("%w: %q: segment %d is empty", ErrInvalidPath, s, i)
		}
	}
	return Path(segments), nil
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Overlaps reports whether a change at other affects the value at p, that is
// whether one path is a prefix of the other.
func (p Path) Overlaps(other Path) bool {
	n := len(p)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Lookup resolves the path against a nested document.
func (p Path) Lookup(doc map[string]any) (any, bool) {
	var cur any = doc
	for _, seg := range p {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assign writes v at the path, creating intermediate maps as needed.
func (p Path) Assign(doc map[string]any, v any) error {
	if len(p) == 0 {
		return ErrInvalidPath
	}
	cur := doc
	for i, seg := range p[:len(p)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			m := make(map[string]any)
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := asMap(next)
		if !ok {
			return fmt.Errorf("%w: %s is not an object", ErrNotFound, p[:i+1].String())
		}
		cur[seg] = m
		cur = m
	}
	cur[p[len(p)-1]] = v
	return nil
}

// asMap normalizes the map shapes produced by the JSON and YAML decoders.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
