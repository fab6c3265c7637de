// Package objpath addresses locations inside a JSON document independent of
// document identity. A Template is a declared pattern (possibly containing
// wildcard array indices); a Path is the concrete location a mutation touches.
package objpath

import (
	"fmt"
	"strconv"
	"strings"
)

// AnyIndexToken is the pattern token for a wildcard array index.
const AnyIndexToken = "*"

type segmentKind uint8

const (
	keySegment segmentKind = iota
	indexSegment
	anyIndexSegment
)

// Segment is one element of a Template.
type Segment struct {
	kind  segmentKind
	key   string
	index int
}

// Key returns a literal object key segment.
func Key(k string) Segment { return Segment{kind: keySegment, key: k} }

// Index returns a literal array index segment.
func Index(i int) Segment { return Segment{kind: indexSegment, index: i} }

// AnyIndex matches any array index at its position.
var AnyIndex = Segment{kind: anyIndexSegment}

func (s Segment) String() string {
	switch s.kind {
	case indexSegment:
		return strconv.Itoa(s.index)
	case anyIndexSegment:
		return AnyIndexToken
	}
	return s.key
}

func (s Segment) matches(elem any) bool {
	switch s.kind {
	case anyIndexSegment:
		_, ok := elem.(int)
		return ok
	case indexSegment:
		i, ok := elem.(int)
		return ok && i == s.index
	}
	k, ok := elem.(string)
	return ok && k == s.key
}

// Path is a concrete location: each element is a string key or an int index.
type Path []any

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ".")
}

// Template is an immutable address pattern. When Inherit is set the template
// also matches every path nested below it; otherwise only paths of exactly
// the same length match.
type Template struct {
	segments []Segment
	inherit  bool
}

// New builds a template from explicit segments.
func New(inherit bool, segs ...Segment) (Template, error) {
	if len(segs) == 0 {
		return Template{}, fmt.Errorf("objpath: empty template")
	}
	for i, s := range segs {
		if s.kind == keySegment && s.key == "" {
			return Template{}, fmt.Errorf("objpath: empty key at segment %d", i)
		}
		if s.kind == indexSegment && s.index < 0 {
			return Template{}, fmt.Errorf("objpath: negative index at segment %d", i)
		}
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return Template{segments: out, inherit: inherit}, nil
}

// Parse reads a dot separated pattern such as "texts.*.chapters". "*" is a
// wildcard index and all-digit segments are literal indices.
func Parse(pattern string, inherit bool) (Template, error) {
	if strings.TrimSpace(pattern) == "" {
		return Template{}, fmt.Errorf("objpath: empty pattern")
	}
	parts := strings.Split(pattern, ".")
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		switch {
		case p == AnyIndexToken:
			segs = append(segs, AnyIndex)
		case isDigits(p):
			i, err := strconv.Atoi(p)
			if err != nil {
				return Template{}, fmt.Errorf("objpath: %q: %w", pattern, err)
			}
			segs = append(segs, Index(i))
		default:
			segs = append(segs, Key(p))
		}
	}
	t, err := New(inherit, segs...)
	if err != nil {
		return Template{}, fmt.Errorf("objpath: %q: %w", pattern, err)
	}
	return t, nil
}

// MustParse is Parse for declarations known at compile time.
func MustParse(pattern string, inherit bool) Template {
	t, err := Parse(pattern, inherit)
	if err != nil {
		panic(err)
	}
	return t
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Inherit reports whether the template matches nested paths.
func (t Template) Inherit() bool { return t.inherit }

// Len is the number of segments.
func (t Template) Len() int { return len(t.segments) }

func (t Template) String() string {
	parts := make([]string, len(t.segments))
	for i, s := range t.segments {
		parts[i] = s.String()
	}
	s := strings.Join(parts, ".")
	if t.inherit {
		return s + ".**"
	}
	return s
}

// Matches compares path against the template segment by segment.
func (t Template) Matches(path Path) bool {
	if len(t.segments) == 0 {
		return false
	}
	if t.inherit {
		if len(path) < len(t.segments) {
			return false
		}
	} else if len(path) != len(t.segments) {
		return false
	}
	for i, s := range t.segments {
		if !s.matches(path[i]) {
			return false
		}
	}
	return true
}

// Affects reports whether a change at path can alter what the template
// addresses: path matches it, or path is an ancestor of a location it matches.
// Replacing or removing a container rewrites everything below it.
func (t Template) Affects(path Path) bool {
	if t.Matches(path) {
		return true
	}
	if len(t.segments) == 0 || len(path) >= len(t.segments) {
		return false
	}
	for i, e := range path {
		if !t.segments[i].matches(e) {
			return false
		}
	}
	return true
}

// AffectedTemplate returns the index of the first template affected by a change at path, or -1.
func AffectedTemplate(templates []Template, path Path) int {
	for i, t := range templates {
		if t.Affects(path) {
			return i
		}
	}
	return -1
}

// MatchingTemplate returns the index of the first template matching path, or -1.
func MatchingTemplate(templates []Template, path Path) int {
	for i, t := range templates {
		if t.Matches(path) {
			return i
		}
	}
	return -1
}
