package router

import "net/url"

// RouteValue is one captured (name, offsetInPath, length) triple. It is a
// slice reference into the original path string — it must not outlive the
// request that produced it.
type RouteValue struct {
	Name   string
	Offset int
	Length int
}

// RouteValues is an ordered, caller-buffer-backed collection of RouteValue.
// It never owns memory: the backing array is supplied by the caller (the
// dispatcher, reused per request) and string materialization happens lazily
// so the hot path never allocates beyond that one buffer.
type RouteValues struct {
	values []RouteValue
}

// Get returns the percent-decoded value captured under name, sliced out of
// path, and whether it was present.
func (v RouteValues) Get(path, name string) (string, bool) {
	for _, rv := range v.values {
		if rv.Name != name {
			continue
		}
		raw := path[rv.Offset : rv.Offset+rv.Length]
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return raw, true
		}
		return decoded, true
	}
	return "", false
}

// Len reports how many values were captured.
func (v RouteValues) Len() int {
	return len(v.values)
}

// valuesBuilder accumulates RouteValue entries into a caller-provided
// buffer during a single TryResolve call.
type valuesBuilder struct {
	buf []RouteValue
	n   int
}

// add appends a captured value; it reports false if the buffer is full,
// which TryResolve treats as a caller-sizing bug, never a user input problem.
func (b *valuesBuilder) add(name string, offset, length int) bool {
	if b.n >= len(b.buf) {
		return false
	}
	b.buf[b.n] = RouteValue{Name: name, Offset: offset, Length: length}
	b.n++
	return true
}

func (b *valuesBuilder) result() RouteValues {
	return RouteValues{values: b.buf[:b.n]}
}
