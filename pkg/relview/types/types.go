// Package types provides the core data model for the release-viewer sync
// pipeline. It defines the configuration document schema (Config, Release,
// Asset) produced by ingestion and consumed by the diff engine and the site
// builder, along with the archive filename rule and download URL templating.
package types

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// Archive extensions for the synthetic source-archive slots of a release.
const (
	// ArchiveExtTar is the extension used for the tarball archive slot.
	ArchiveExtTar = "tar.gz"

	// ArchiveExtZip is the extension used for the zip archive slot.
	ArchiveExtZip = "zip"
)

// ArchiveDir is the sub-path within a tag directory that holds source
// archives, keeping them apart from the release's named assets.
const ArchiveDir = "archive"

// Asset describes a single downloadable file attached to a release.
// Its identity for diffing purposes is Name; two assets are considered
// unchanged when Name, DownloadURL, Size and Digest are all equal.
type Asset struct {
	// Name is the asset filename, unique within a release.
	Name string `json:"name"`

	// Size is the asset size in bytes as reported by the API.
	Size int64 `json:"size"`

	// Digest is the content hash reported by the API (may be empty when
	// the hosting service does not expose one).
	Digest string `json:"digest,omitempty"`

	// DownloadURL is the location the asset content is fetched from.
	DownloadURL string `json:"download_url"`

	// UpdatedAt is the last modification time reported by the API.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Same reports whether two assets are identical for reconciliation
// purposes: same name, source URL, size and content digest.
func (a Asset) Same(other Asset) bool {
	return a.Name == other.Name &&
		a.DownloadURL == other.DownloadURL &&
		a.Size == other.Size &&
		a.Digest == other.Digest
}

// Tag identifies a release within a snapshot. The tag name is the primary
// key: no two releases in one Config share a tag name.
type Tag struct {
	// Name is the source-control tag name (e.g. "v1.2.3").
	Name string `json:"name"`
}

// Release describes one tagged release and its downloadable content.
type Release struct {
	// Tag is the unique key of this release within a Config.
	Tag Tag `json:"tag"`

	// Name is the display name of the release.
	Name string `json:"name"`

	// Assets are the release's named files, in API order. Asset names are
	// unique within a release.
	Assets []Asset `json:"assets"`

	// TarURL is the optional source tarball location. It behaves as a
	// synthetic single-asset slot keyed by the archive filename rule.
	TarURL string `json:"tar_url,omitempty"`

	// ZipURL is the optional source zip location, handled like TarURL.
	ZipURL string `json:"zip_url,omitempty"`

	// PublishedAt is when the release was published upstream.
	PublishedAt time.Time `json:"published_at,omitempty"`

	// Labels carries upstream release markers (e.g. "prerelease").
	Labels []string `json:"labels,omitempty"`

	// Body is the release notes text, kept for the site builder.
	Body string `json:"body,omitempty"`
}

// Asset returns the named asset and whether it exists in this release.
func (r *Release) Asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// FileCount returns the number of files this release contributes to the
// download tree: its assets plus any present archive slots.
func (r *Release) FileCount() int {
	n := len(r.Assets)
	if r.ZipURL != "" {
		n++
	}
	if r.TarURL != "" {
		n++
	}
	return n
}

// Config is a complete snapshot of a repository's release state at one
// point in time. A Config is immutable once loaded: the diff engine never
// mutates it, and URL templating operates on a clone.
type Config struct {
	// Name is the repository full name (e.g. "acme/widget").
	Name string `json:"name"`

	// Releases holds the releases in API order. Tag names are unique.
	Releases []Release `json:"releases"`
}

// RepoName returns the repository name component of the full name, i.e.
// "widget" for "acme/widget". It is the name used by the archive filename
// rule.
func (c *Config) RepoName() string {
	return path.Base(c.Name)
}

// Release returns the release with the given tag name and whether it
// exists in this snapshot.
func (c *Config) Release(tag string) (*Release, bool) {
	for i := range c.Releases {
		if c.Releases[i].Tag.Name == tag {
			return &c.Releases[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the config. Mutating the copy never
// affects the original.
func (c *Config) Clone() *Config {
	out := &Config{
		Name:     c.Name,
		Releases: make([]Release, len(c.Releases)),
	}
	for i, r := range c.Releases {
		cp := r
		cp.Assets = append([]Asset(nil), r.Assets...)
		cp.Labels = append([]string(nil), r.Labels...)
		out.Releases[i] = cp
	}
	return out
}

// archiveSanitizer matches every character the archive filename rule
// replaces with an underscore.
var archiveSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ArchiveFilename renders the synthetic filename for an archive slot:
// "{repoName}-{tagName}.{ext}" with all characters outside [A-Za-z0-9._-]
// replaced by underscores. The result is relative to the tag directory
// and lives under the archive/ sub-path.
func ArchiveFilename(repoName, tagName, ext string) string {
	base := archiveSanitizer.ReplaceAllString(repoName+"-"+tagName, "_")
	return ArchiveDir + "/" + base + "." + ext
}

// TemplateVars supplies the values substituted into a download URL
// template.
type TemplateVars struct {
	// Tag is the release tag name.
	Tag string

	// Name is the tag-relative file path: the asset filename, or
	// "archive/<synthetic>" for archive slots.
	Name string

	// Release is the release display name.
	Release string

	// URL is the original download URL.
	URL string
}

// ExpandURLTemplate substitutes {tag}, {name}, {release} and {url}
// placeholders in tmpl. Unknown placeholders are left verbatim.
func ExpandURLTemplate(tmpl string, vars TemplateVars) string {
	replacer := strings.NewReplacer(
		"{tag}", vars.Tag,
		"{name}", vars.Name,
		"{release}", vars.Release,
		"{url}", vars.URL,
	)
	return replacer.Replace(tmpl)
}

// Templated returns a clone of the config with every download URL
// rewritten through tmpl, so the published site links to the mirrored
// locations rather than the upstream ones. Archive slot URLs expand with
// {name} set to their archive/ sub-path. An empty template returns a
// plain clone.
func (c *Config) Templated(tmpl string) *Config {
	out := c.Clone()
	if tmpl == "" {
		return out
	}
	repo := c.RepoName()
	for i := range out.Releases {
		rel := &out.Releases[i]
		for j := range rel.Assets {
			asset := &rel.Assets[j]
			asset.DownloadURL = ExpandURLTemplate(tmpl, TemplateVars{
				Tag:     rel.Tag.Name,
				Name:    asset.Name,
				Release: rel.Name,
				URL:     asset.DownloadURL,
			})
		}
		if rel.ZipURL != "" {
			rel.ZipURL = ExpandURLTemplate(tmpl, TemplateVars{
				Tag:     rel.Tag.Name,
				Name:    ArchiveFilename(repo, rel.Tag.Name, ArchiveExtZip),
				Release: rel.Name,
				URL:     rel.ZipURL,
			})
		}
		if rel.TarURL != "" {
			rel.TarURL = ExpandURLTemplate(tmpl, TemplateVars{
				Tag:     rel.Tag.Name,
				Name:    ArchiveFilename(repo, rel.Tag.Name, ArchiveExtTar),
				Release: rel.Name,
				URL:     rel.TarURL,
			})
		}
	}
	return out
}
