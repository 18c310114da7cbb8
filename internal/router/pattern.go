package router

import "strings"

// segmentKind discriminates the kinds of path segment a Template can hold.
type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentParam
	segmentGreedyParam
)

// segment is one compiled path component.
type segment struct {
	kind       segmentKind
	literal    string // set when kind == segmentLiteral, lower-cased
	name       string // set when kind == segmentParam or segmentGreedyParam
	allowEmpty bool   // "{name?}" — explicitly allows an empty captured segment
}

// PatternKind distinguishes the two RoutePattern variants.
type PatternKind int

const (
	// PatternExact matches a literal path with no parameters.
	PatternExact PatternKind = iota
	// PatternTemplate matches a `/`-segmented path containing parameters.
	PatternTemplate
)

// Pattern is the compiled form of a route's path: either an exact literal
// or a sequence of segments. Immutable once built.
type Pattern struct {
	Kind    PatternKind
	literal string // lower-cased, PatternExact only
	raw     string // original text as registered, for diagnostics
	segs    []segment
}

// NewExactPattern builds a PatternExact from a literal path.
func NewExactPattern(path string) Pattern {
	return Pattern{Kind: PatternExact, literal: strings.ToLower(path), raw: path}
}

// NewTemplatePattern compiles a `/`-delimited template such as
// "/badges/packages/github/{org}/{package}" into a Pattern. A segment of
// the form "{name}" is a Param; "{name...}" is a terminal greedy Param and
// must be the last segment. Panics on a malformed template — templates are
// a startup-time, not request-time, concern.
func NewTemplatePattern(path string) Pattern {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segs := make([]segment, 0, len(parts))
	names := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			inner := part[1 : len(part)-1]
			greedy := strings.HasSuffix(inner, "...")
			name := strings.TrimSuffix(inner, "...")
			allowEmpty := strings.HasSuffix(name, "?")
			name = strings.TrimSuffix(name, "?")

			if name == "" {
				panic("router: empty param name in template " + path)
			}
			if _, dup := names[name]; dup {
				panic("router: duplicate param name " + name + " in template " + path)
			}
			names[name] = struct{}{}

			if greedy && i != len(parts)-1 {
				panic("router: greedy param must be the last segment in template " + path)
			}
			if greedy && allowEmpty {
				panic("router: a greedy param cannot also be empty-allowing in template " + path)
			}

			kind := segmentParam
			if greedy {
				kind = segmentGreedyParam
			}
			segs = append(segs, segment{kind: kind, name: name, allowEmpty: allowEmpty})
			continue
		}

		segs = append(segs, segment{kind: segmentLiteral, literal: strings.ToLower(part)})
	}

	return Pattern{Kind: PatternTemplate, raw: path, segs: segs}
}

// hasGreedyTail reports whether the last segment is a greedy param.
func (p Pattern) hasGreedyTail() bool {
	return len(p.segs) > 0 && p.segs[len(p.segs)-1].kind == segmentGreedyParam
}
