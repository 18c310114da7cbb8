package handlers

import (
	"net/url"
	"strconv"

	"github.com/localstack-dotnet/badge-smith/internal/badges"
)

// badgeBody is the Shields-compatible response every badge endpoint
// returns. Field order is fixed so C2's ETag stays stable across identical
// inputs.
type badgeBody struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
	NamedLogo     string `json:"namedLogo,omitempty"`
	CacheSeconds  int    `json:"cacheSeconds,omitempty"`
}

func versionBadge(label, version, logo string) badgeBody {
	return badgeBody{SchemaVersion: 1, Label: label, Message: version, Color: "blue", NamedLogo: logo}
}

func notFoundBadge(label string) badgeBody {
	return badgeBody{SchemaVersion: 1, Label: label, Message: "not found", Color: "lightgrey"}
}

func unavailableBadge(label string) badgeBody {
	return badgeBody{SchemaVersion: 1, Label: label, Message: "unavailable", Color: "lightgrey"}
}

// parseFilters builds badges.Filters from a badge endpoint's query string.
func parseFilters(query url.Values) badges.Filters {
	prerelease, _ := strconv.ParseBool(query.Get("prerelease"))
	return badges.Filters{
		GT:         query.Get("gt"),
		GTE:        query.Get("gte"),
		LT:         query.Get("lt"),
		LTE:        query.Get("lte"),
		EQ:         query.Get("eq"),
		Prerelease: prerelease,
	}
}
