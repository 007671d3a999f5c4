package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrPackageNotFound is returned when the index does not know the
// requested package or release.
var ErrPackageNotFound = errors.New("package not found on the index")

// Release holds the metadata of one package release as served by the
// index JSON API. Name carries the index's normalized spelling.
type Release struct {
	Name         string
	Version      string
	DownloadURLs []string
}

// Client queries the package index JSON API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an index client rooted at baseURL. A nil http client
// falls back to a pooled default.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, client: client}
}

// releaseResponse is the subset of the JSON API response we consume
type releaseResponse struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
	URLs []struct {
		URL string `json:"url"`
	} `json:"urls"`
}

// ReleaseMetadata fetches the metadata of a (name, version) release.
// Returns ErrPackageNotFound when the index answers 404.
func (c *Client) ReleaseMetadata(ctx context.Context, name, version string) (*Release, error) {
	url := fmt.Sprintf("%s/pypi/%s/%s/json", c.baseURL, name, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("package", name).Str("version", version).Msg("Failed to fetch release metadata")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPackageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d for %s %s", resp.StatusCode, name, version)
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release metadata: %w", err)
	}

	urls := make([]string, 0, len(release.URLs))
	for _, distribution := range release.URLs {
		urls = append(urls, distribution.URL)
	}
	return &Release{
		Name:         release.Info.Name,
		Version:      release.Info.Version,
		DownloadURLs: urls,
	}, nil
}

// ProjectExists reports whether the index serves a project page for the
// given name. Only a 404 counts as missing.
func (c *Client) ProjectExists(ctx context.Context, name string) (bool, error) {
	url := fmt.Sprintf("%s/project/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusNotFound, nil
}
