// Package github ingests release metadata from the GitHub REST API and
// normalizes it into the snapshot document the rest of the pipeline
// consumes.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// perPage is the page size for release listing.
const perPage = 100

// ErrBadStatus marks an API response with an unexpected status code.
var ErrBadStatus = errors.New("unexpected API status")

// Client talks to the releases API of one GitHub-compatible host.
type Client struct {
	base   string
	token  string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, e.g. a GitHub
// Enterprise instance or a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimSuffix(base, "/") }
}

// WithToken authenticates requests. Anonymous access works but is
// rate-limited hard.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New returns a Client for the public GitHub API.
func New(opts ...Option) *Client {
	c := &Client{
		base:   DefaultBaseURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiAsset is the wire shape of a release asset.
type apiAsset struct {
	Name               string    `json:"name"`
	Size               int64     `json:"size"`
	Digest             string    `json:"digest"`
	BrowserDownloadURL string    `json:"browser_download_url"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// apiRelease is the wire shape of a release.
type apiRelease struct {
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Assets      []apiAsset `json:"assets"`
	TarballURL  string     `json:"tarball_url"`
	ZipballURL  string     `json:"zipball_url"`
	PublishedAt time.Time  `json:"published_at"`
	Draft       bool       `json:"draft"`
	Prerelease  bool       `json:"prerelease"`
	Body        string     `json:"body"`
}

// Releases fetches every release of repo ("owner/name"), following
// pagination, and normalizes the result into a snapshot. Draft
// releases are skipped; they have no stable download URLs.
func (c *Client) Releases(ctx context.Context, repo string) (*types.Config, error) {
	if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q: want owner/name", repo)
	}

	cfg := &types.Config{Name: repo, Releases: []types.Release{}}
	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, repo, page)
		if err != nil {
			return nil, err
		}
		for _, rel := range batch {
			if rel.Draft {
				logging.Get("github").Debug("skipping draft release", "tag", rel.TagName)
				continue
			}
			cfg.Releases = append(cfg.Releases, normalize(rel))
		}
		if len(batch) < perPage {
			break
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent release listing for %s: %w", repo, err)
	}
	logging.Get("github").Info("fetched releases", "repo", repo, "count", len(cfg.Releases))
	return cfg, nil
}

// fetchPage retrieves one page of the release listing.
func (c *Client) fetchPage(ctx context.Context, repo string, page int) ([]apiRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", c.base, repo, perPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s: %w", repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s for %s: %s", ErrBadStatus, resp.Status, repo, strings.TrimSpace(string(body)))
	}

	var batch []apiRelease
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode release listing: %w", err)
	}
	return batch, nil
}

// normalize maps one API release onto the snapshot schema.
func normalize(rel apiRelease) types.Release {
	out := types.Release{
		Tag:         types.Tag{Name: rel.TagName},
		Name:        rel.Name,
		Assets:      make([]types.Asset, 0, len(rel.Assets)),
		TarURL:      rel.TarballURL,
		ZipURL:      rel.ZipballURL,
		PublishedAt: rel.PublishedAt,
		Body:        rel.Body,
	}
	if out.Name == "" {
		out.Name = rel.TagName
	}
	if rel.Prerelease {
		out.Labels = append(out.Labels, "prerelease")
	}
	for _, a := range rel.Assets {
		out.Assets = append(out.Assets, types.Asset{
			Name:        a.Name,
			Size:        a.Size,
			Digest:      a.Digest,
			DownloadURL: a.BrowserDownloadURL,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return out
}
