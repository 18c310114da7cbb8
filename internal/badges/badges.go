// Package badges implements C7: upstream package-version resolution for the
// NuGet and GitHub providers, with semver filtering, conditional-GET ETag
// caching, a per-key circuit breaker, and stale-cache fallback.
package badges

import (
	"errors"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrNotFound is returned when no upstream version satisfies the filters,
// or the package/org does not exist upstream.
var ErrNotFound = errors.New("badges: no matching version")

// ErrUnavailable is returned when the upstream is unreachable (circuit
// open, or a failed fetch with no cached fallback available).
var ErrUnavailable = errors.New("badges: upstream unavailable")

// Filters narrows the candidate version set before selection. Comparator
// fields are semver strings; a blank field is not applied.
type Filters struct {
	GT         string
	GTE        string
	LT         string
	LTE        string
	EQ         string
	Prerelease bool
}

// PackageInfo is what C7 resolves to. Stale marks a result served from the
// ETag cache after an upstream failure (429/5xx/circuit open).
type PackageInfo struct {
	Version string
	Stale   bool
}

// SelectVersion applies filters to raw (unparsed) upstream version strings
// and returns the highest remaining version by semver precedence.
// Unparsable upstream strings are skipped rather than treated as an error —
// upstreams occasionally list malformed or non-semver tags.
func SelectVersion(raw []string, filters Filters) (string, error) {
	var constraints []*semver.Constraints
	for _, expr := range []string{
		comparatorExpr(">", filters.GT),
		comparatorExpr(">=", filters.GTE),
		comparatorExpr("<", filters.LT),
		comparatorExpr("<=", filters.LTE),
		comparatorExpr("=", filters.EQ),
	} {
		if expr == "" {
			continue
		}
		c, err := semver.NewConstraint(expr)
		if err != nil {
			return "", err
		}
		constraints = append(constraints, c)
	}

	var candidates []*semver.Version
	for _, r := range raw {
		v, err := semver.NewVersion(r)
		if err != nil {
			continue
		}
		if v.Prerelease() != "" && !filters.Prerelease {
			continue
		}
		if !satisfiesAll(v, constraints) {
			continue
		}
		candidates = append(candidates, v)
	}

	if len(candidates) == 0 {
		return "", ErrNotFound
	}

	sort.Sort(semver.Collection(candidates))
	return candidates[len(candidates)-1].Original(), nil
}

func satisfiesAll(v *semver.Version, constraints []*semver.Constraints) bool {
	for _, c := range constraints {
		if !c.Check(v) {
			return false
		}
	}
	return true
}

func comparatorExpr(op, value string) string {
	if value == "" {
		return ""
	}
	return op + " " + value
}
