// Package path implements the engine's Path type: a segment sequence that can
// address into either a schema tree or a data document, accepted on input in
// either slash-delimited pointer form ("#/a/b/0/c") or dotted form
// ("a.b.0.c"), per spec §3 and §6.
package path

import (
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonpointer"
)

// Path is an ordered sequence of segments: object keys or array indices.
// Array indices are stored as their decimal string form, the same as object
// keys, so an index and a numeric-looking key are not told apart;
// SegmentIsIndex reports whether a segment parses as an index.
type Path struct {
	segments []string
}

// Root is the empty path, addressing the document itself.
func Root() Path { return Path{} }

// FromSegments builds a Path from already-split segments.
func FromSegments(segments []string) Path {
	return Path{segments: append([]string(nil), segments...)}
}

// Parse accepts either pointer form ("#/a/b/0") or dotted form ("a.b.0") and
// returns the parsed Path. A leading "#/" or "/" is stripped; dotted form
// splits on ".".
func Parse(s string) Path {
	if s == "" || s == "#" || s == "#/" || s == "/" {
		return Root()
	}
	if strings.HasPrefix(s, "#/") {
		return Path{segments: jsonpointer.Parse(s[1:])}
	}
	if strings.HasPrefix(s, "/") {
		return Path{segments: jsonpointer.Parse(s)}
	}
	return Path{segments: strings.Split(s, ".")}
}

// Segments returns the raw segment slice. The caller must not mutate it.
func (p Path) Segments() []string { return p.segments }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// IsRoot reports whether the path addresses the document root.
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// Head returns the first segment and the remainder of the path.
func (p Path) Head() (string, Path, bool) {
	if len(p.segments) == 0 {
		return "", Path{}, false
	}
	return p.segments[0], Path{segments: p.segments[1:]}, true
}

// Last returns the final segment.
func (p Path) Last() (string, bool) {
	if len(p.segments) == 0 {
		return "", false
	}
	return p.segments[len(p.segments)-1], true
}

// Parent returns the path with its last segment removed.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: p.segments[:len(p.segments)-1]}
}

// Child appends one segment and returns the new Path.
func (p Path) Child(segment string) Path {
	out := make([]string, len(p.segments)+1)
	copy(out, p.segments)
	out[len(p.segments)] = segment
	return Path{segments: out}
}

// Join appends another path's segments.
func (p Path) Join(other Path) Path {
	out := make([]string, 0, len(p.segments)+len(other.segments))
	out = append(out, p.segments...)
	out = append(out, other.segments...)
	return Path{segments: out}
}

// SegmentIsIndex reports whether a segment parses as a non-negative array
// index.
func SegmentIsIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	n, err := strconv.Atoi(segment)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// String renders the path in dotted form, the output form mandated by §6.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}

// Pointer renders the path in slash-delimited pointer form.
func (p Path) Pointer() string {
	if len(p.segments) == 0 {
		return "#/"
	}
	var b strings.Builder
	b.WriteString("#")
	for _, s := range p.segments {
		b.WriteByte('/')
		b.WriteString(escapePointerSegment(s))
	}
	return b.String()
}

// escapePointerSegment applies RFC 6901 escaping ("~" -> "~0", "/" -> "~1").
func escapePointerSegment(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with all of prefix's segments.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i := range prefix.segments {
		if p.segments[i] != prefix.segments[i] {
			return false
		}
	}
	return true
}
