package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleases_NormalizesListing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widget/releases", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		fmt.Fprint(w, `[
			{
				"tag_name": "v1.1",
				"name": "Widget 1.1",
				"assets": [
					{"name": "b.zip", "size": 42, "digest": "sha256:bb", "browser_download_url": "https://dl/b.zip"}
				],
				"tarball_url": "https://api/tar/v1.1",
				"zipball_url": "https://api/zip/v1.1",
				"prerelease": true,
				"body": "notes"
			},
			{
				"tag_name": "v1.0-draft",
				"draft": true,
				"assets": []
			},
			{
				"tag_name": "v1.0",
				"name": "",
				"assets": [
					{"name": "a.zip", "size": 7, "browser_download_url": "https://dl/a.zip"}
				]
			}
		]`)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("tok"), WithHTTPClient(srv.Client()))
	cfg, err := c.Releases(context.Background(), "acme/widget")
	require.NoError(t, err)

	require.Len(t, cfg.Releases, 2, "draft must be skipped")
	assert.Equal(t, "acme/widget", cfg.Name)

	first := cfg.Releases[0]
	assert.Equal(t, "v1.1", first.Tag.Name)
	assert.Equal(t, "Widget 1.1", first.Name)
	assert.Equal(t, []string{"prerelease"}, first.Labels)
	assert.Equal(t, "https://api/tar/v1.1", first.TarURL)
	assert.Equal(t, "https://api/zip/v1.1", first.ZipURL)
	require.Len(t, first.Assets, 1)
	assert.Equal(t, "sha256:bb", first.Assets[0].Digest)

	second := cfg.Releases[1]
	assert.Equal(t, "v1.0", second.Name, "empty display name falls back to tag")
}

func TestReleases_FollowsPagination(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")

		var releases []map[string]any
		if page == "1" {
			for i := 0; i < perPage; i++ {
				releases = append(releases, map[string]any{
					"tag_name": fmt.Sprintf("v0.%d", i),
				})
			}
		} else {
			releases = append(releases, map[string]any{"tag_name": "last"})
		}
		require.NoError(t, json.NewEncoder(w).Encode(releases))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	cfg, err := c.Releases(context.Background(), "acme/widget")
	require.NoError(t, err)
	assert.Len(t, cfg.Releases, perPage+1)
	assert.Equal(t, "last", cfg.Releases[perPage].Tag.Name)
}

func TestReleases_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	_, err := c.Releases(context.Background(), "acme/widget")
	assert.ErrorIs(t, err, ErrBadStatus)

	_, err = c.Releases(context.Background(), "not-a-fullname")
	assert.Error(t, err)
}
