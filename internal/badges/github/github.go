// Package github implements the GitHub wire format for C7: org-scoped
// package version listing, authenticated with a per-org provider token
// when one is available.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/badges"
)

// Fetcher implements badges.Fetcher against the GitHub packages API.
type Fetcher struct {
	httpClient  *http.Client
	baseURL     string
	packageType string
}

// New returns a Fetcher for baseURL (e.g. https://api.github.com),
// listing versions of the given package type (default "container").
func New(baseURL, packageType string, timeout time.Duration) *Fetcher {
	if packageType == "" {
		packageType = "container"
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		packageType: packageType,
	}
}

func (f *Fetcher) Name() string        { return "github" }
func (f *Fetcher) RequiresToken() bool { return true }

type packageVersion struct {
	Name string `json:"name"`
}

// Fetch requests the version list for pkg within org. token is the
// resolved provider token, if any (public packages may not require one).
func (f *Fetcher) Fetch(ctx context.Context, org, pkg, etag, token string) (badges.FetchResult, error) {
	url := fmt.Sprintf("%s/orgs/%s/packages/%s/%s/versions", f.baseURL, org, f.packageType, pkg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return badges.FetchResult{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("github: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return badges.FetchResult{NotModified: true}, nil
	case resp.StatusCode == http.StatusNotFound:
		return badges.FetchResult{}, badges.ErrUpstreamNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("github: rate limited"))
	case resp.StatusCode == http.StatusForbidden:
		return badges.FetchResult{}, fmt.Errorf("github: forbidden")
	case resp.StatusCode >= http.StatusInternalServerError:
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("github: server error %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return badges.FetchResult{}, fmt.Errorf("github: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("github: reading body: %w", err))
	}

	var payload []packageVersion
	if err := json.Unmarshal(body, &payload); err != nil {
		return badges.FetchResult{}, fmt.Errorf("github: parsing version list: %w", err)
	}

	versions := make([]string, 0, len(payload))
	for _, v := range payload {
		versions = append(versions, v.Name)
	}

	return badges.FetchResult{ETag: resp.Header.Get("ETag"), Versions: versions}, nil
}
