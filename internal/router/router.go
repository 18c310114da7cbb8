// Package router implements the method+path resolver: an exact-literal
// index consulted first, then an ordered list of compiled templates. See
// RouteTable.TryResolve.
package router

import "strings"

// RouteDescriptor identifies a registered route. Immutable after
// construction, owned by the RouteTable, shared read-only for the process
// lifetime.
type RouteDescriptor struct {
	Name         string
	Method       string // normalized uppercase, HEAD never registered directly (it rides GET)
	Pattern      Pattern
	RequiresAuth bool
	HandlerRef   string // key into the handler registry C9 looks up
}

// RouteSpec is the input shape used to build a RouteTable at startup.
type RouteSpec struct {
	Name         string
	Method       string
	Path         string // "/literal/path" or "/badges/{provider}/{package...}"
	RequiresAuth bool
	HandlerRef   string
}

// RouteMatch pairs a resolved RouteDescriptor with the RouteValues captured
// for this request.
type RouteMatch struct {
	Descriptor RouteDescriptor
	Values     RouteValues
}

type methodEntry struct {
	method     string
	descriptor RouteDescriptor
}

type templateEntry struct {
	pattern    Pattern
	method     string
	descriptor RouteDescriptor
}

// RouteTable is the compiled, process-wide singleton route index.
type RouteTable struct {
	exact     map[string][]methodEntry
	templates []templateEntry
}

// NewRouteTable compiles specs into a RouteTable. Templates are matched in
// registration order, so register the most specific templates first.
func NewRouteTable(specs []RouteSpec) *RouteTable {
	t := &RouteTable{exact: make(map[string][]methodEntry)}

	for _, s := range specs {
		method := strings.ToUpper(s.Method)
		desc := RouteDescriptor{
			Name:         s.Name,
			Method:       method,
			RequiresAuth: s.RequiresAuth,
			HandlerRef:   s.HandlerRef,
		}

		if strings.Contains(s.Path, "{") {
			desc.Pattern = NewTemplatePattern(s.Path)
			t.templates = append(t.templates, templateEntry{pattern: desc.Pattern, method: method, descriptor: desc})
			continue
		}

		desc.Pattern = NewExactPattern(s.Path)
		key := strings.ToLower(s.Path)
		t.exact[key] = append(t.exact[key], methodEntry{method: method, descriptor: desc})
	}

	return t
}

// normalizeMethod treats HEAD as GET for matching purposes; all other
// methods compare case-insensitively.
func normalizeMethod(method string) string {
	m := strings.ToUpper(method)
	if m == "HEAD" {
		return "GET"
	}
	return m
}

// TryResolve matches method+path against the table. scratch is a
// caller-owned buffer reused across requests; it must be large enough to
// hold the matched template's param count (callers size it to the largest
// template once at startup). An exact-literal match does not allocate; a
// template lookup allocates one slice of path-segment offsets per call.
func (t *RouteTable) TryResolve(method, path string, scratch []RouteValue) (RouteMatch, bool) {
	normMethod := normalizeMethod(method)

	if entries, ok := t.exact[strings.ToLower(path)]; ok {
		for _, e := range entries {
			if e.method == normMethod {
				return RouteMatch{Descriptor: e.descriptor}, true
			}
		}
		return RouteMatch{}, false
	}

	offsets, ok := segmentOffsets(path)
	if !ok {
		return RouteMatch{}, false
	}

	for _, te := range t.templates {
		if te.method != normMethod {
			continue
		}
		vb := valuesBuilder{buf: scratch}
		if matchTemplate(te.pattern, path, offsets, &vb) {
			return RouteMatch{Descriptor: te.descriptor, Values: vb.result()}, true
		}
	}

	return RouteMatch{}, false
}

// methodPriority orders the allowed-methods list deterministically; any
// method not listed here sorts after these, in registration-derived order.
var methodPriority = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

// AllowedMethods returns the ordered, duplicate-free set of methods any
// registered route supports for path, always including OPTIONS and adding
// HEAD whenever GET is present. Used by C3 to build preflight responses.
func (t *RouteTable) AllowedMethods(path string) []string {
	set := make(map[string]struct{})
	var seen []string
	add := func(m string) {
		if _, ok := set[m]; !ok {
			set[m] = struct{}{}
			seen = append(seen, m)
		}
	}

	if entries, ok := t.exact[strings.ToLower(path)]; ok {
		for _, e := range entries {
			add(e.method)
		}
	}

	if offsets, ok := segmentOffsets(path); ok {
		for _, te := range t.templates {
			scratch := make([]RouteValue, len(te.pattern.segs))
			vb := valuesBuilder{buf: scratch}
			if matchTemplate(te.pattern, path, offsets, &vb) {
				add(te.method)
			}
		}
	}

	set["OPTIONS"] = struct{}{}
	if _, ok := set["GET"]; ok {
		set["HEAD"] = struct{}{}
	}

	ordered := make([]string, 0, len(set))
	for _, m := range methodPriority {
		if _, ok := set[m]; ok {
			ordered = append(ordered, m)
			delete(set, m)
		}
	}
	for _, m := range seen {
		if _, ok := set[m]; ok {
			ordered = append(ordered, m)
		}
	}

	return ordered
}

// segmentOffsets splits path into `/`-delimited segment offsets. An empty
// path, a path not starting with `/`, or a trailing-slash path never
// matches (per spec edge policy) and returns ok=false.
func segmentOffsets(path string) ([][2]int, bool) {
	if path == "" || path[0] != '/' {
		return nil, false
	}
	if len(path) == 1 {
		return [][2]int{}, true
	}
	if path[len(path)-1] == '/' {
		return nil, false
	}

	var offsets [][2]int
	start := 1
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			offsets = append(offsets, [2]int{start, i})
			start = i + 1
		}
	}
	offsets = append(offsets, [2]int{start, len(path)})
	return offsets, true
}

// matchTemplate matches pattern's segments against the path segments
// described by offsets, appending captured params into vb. A non-greedy
// template requires an exact segment-count match; a greedy-tailed template
// requires at least as many path segments as template segments, with the
// greedy param capturing every remaining path segment (including `/`).
func matchTemplate(pattern Pattern, path string, offsets [][2]int, vb *valuesBuilder) bool {
	segs := pattern.segs

	if pattern.hasGreedyTail() {
		if len(offsets) < len(segs) {
			return false
		}
	} else if len(offsets) != len(segs) {
		return false
	}

	for i, seg := range segs {
		if seg.kind == segmentGreedyParam {
			start := offsets[i][0]
			end := offsets[len(offsets)-1][1]
			if end <= start {
				return false
			}
			if !vb.add(seg.name, start, end-start) {
				return false
			}
			return true
		}

		off := offsets[i]
		text := path[off[0]:off[1]]

		switch seg.kind {
		case segmentLiteral:
			if !strings.EqualFold(text, seg.literal) {
				return false
			}
		case segmentParam:
			if off[1] == off[0] && !seg.allowEmpty {
				return false
			}
			if !vb.add(seg.name, off[0], off[1]-off[0]) {
				return false
			}
		}
	}

	return true
}
