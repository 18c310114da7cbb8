// Package nuget implements the NuGet wire format for C7: the flat
// container version index, with no per-org distinction and no
// authentication.
package nuget

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

// Fetcher implements badges.Fetcher against the NuGet v3 flat container.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a Fetcher for baseURL (e.g. https://api.nuget.org/v3-flatcontainer)
// with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (f *Fetcher) Name() string        { return "nuget" }
func (f *Fetcher) RequiresToken() bool { return false }

type versionIndex struct {
	Versions []string `json:"versions"`
}

// Fetch requests the version index for pkg. org is unused for NuGet.
func (f *Fetcher) Fetch(ctx context.Context, _, pkg, etag, _ string) (badges.FetchResult, error) {
	url := fmt.Sprintf("%s/%s/index.json", f.baseURL, strings.ToLower(pkg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return badges.FetchResult{}, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("nuget: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return badges.FetchResult{NotModified: true}, nil
	case resp.StatusCode == http.StatusNotFound:
		return badges.FetchResult{}, badges.ErrUpstreamNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("nuget: rate limited"))
	case resp.StatusCode >= http.StatusInternalServerError:
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("nuget: server error %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return badges.FetchResult{}, fmt.Errorf("nuget: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return badges.FetchResult{}, badges.Retryable(fmt.Errorf("nuget: reading body: %w", err))
	}

	var index versionIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return badges.FetchResult{}, fmt.Errorf("nuget: parsing version index: %w", err)
	}

	return badges.FetchResult{ETag: resp.Header.Get("ETag"), Versions: index.Versions}, nil
}
