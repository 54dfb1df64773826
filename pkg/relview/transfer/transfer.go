// Package transfer moves file trees between the local staging area and
// the mirror target. A target is addressed by a spec string: a plain
// path selects the local filesystem backend, rsync-style specs select
// an rsync subprocess, and s3:// specs select object storage. All
// backends expose the same four operations, so the orchestrator never
// cares where the target lives.
package transfer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Transferrer is the reliable copy/sync collaborator of the sync
// pipeline. src arguments are always local directories or files;
// relative paths are resolved against the target root.
type Transferrer interface {
	// Copy merges the local directory src into the target,
	// preserving relative paths and overwriting existing files. It
	// never deletes anything.
	Copy(ctx context.Context, src string) error

	// Move copies the single local file src to rel under the target,
	// then removes the source.
	Move(ctx context.Context, src, rel string) error

	// Mirror deletes every target file absent from the local
	// directory src. It never creates or rewrites target files, so a
	// skeleton of empty placeholders can drive deletion without
	// clobbering content or masking files a failed download left
	// missing.
	Mirror(ctx context.Context, src string) error

	// Exists reports whether rel exists under the target. It checks
	// presence only and never transfers content.
	Exists(ctx context.Context, rel string) (bool, error)
}

// S3Options carries the object-storage credentials used when a target
// spec selects the S3 backend.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Options configures target resolution.
type Options struct {
	S3 S3Options
}

// remoteSpec matches rsync remote shorthand: [user@]host:path with a
// multi-character host part, so Windows-style drive letters still
// resolve as local paths.
var remoteSpec = regexp.MustCompile(`^(?:[^@/:]+@)?[^@/:]{2,}:`)

// Resolve picks the backend for a target spec. Scheme-qualified specs
// are checked before the remote shorthand, which would otherwise read
// any scheme prefix as a host.
func Resolve(spec string, opts Options) (Transferrer, error) {
	switch {
	case spec == "":
		return nil, fmt.Errorf("empty target spec")
	case strings.HasPrefix(spec, "s3://"):
		return newS3(spec, opts.S3)
	case strings.HasPrefix(spec, "rsync://"):
		return newRsync(spec), nil
	case strings.Contains(spec, "://"):
		return nil, fmt.Errorf("unsupported target scheme in %q", spec)
	case remoteSpec.MatchString(spec):
		return newRsync(spec), nil
	default:
		return newLocal(spec), nil
	}
}
