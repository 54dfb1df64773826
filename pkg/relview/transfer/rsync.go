package transfer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
)

// rsyncExitNoSuchFile is rsync's "partial transfer due to error" code,
// which a --list-only probe of a missing path reports.
const rsyncExitNoSuchFile = 23

// rsync shells out to the rsync binary for remote targets, addressed
// as rsync://host/path or [user@]host:path.
type rsync struct {
	dest string
}

func newRsync(dest string) *rsync {
	return &rsync{dest: strings.TrimSuffix(dest, "/")}
}

// run executes rsync with the given arguments, mapping failures to
// ExitError so the CLI can report the subprocess exit status.
func (r *rsync) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "rsync", args...)
	cmdline := "rsync " + strings.Join(args, " ")
	logging.Get("transfer").Debug("running transfer command", "cmd", cmdline)
	if out, err := cmd.CombinedOutput(); err != nil {
		logging.Get("transfer").Error("transfer command failed", "cmd", cmdline, "output", strings.TrimSpace(string(out)))
		return wrapExit(cmdline, err)
	}
	return nil
}

func (r *rsync) Copy(ctx context.Context, src string) error {
	return r.run(ctx, r.copyArgs(src)...)
}

// Move transfers one file into its tag-relative location.
func (r *rsync) Move(ctx context.Context, src, rel string) error {
	return r.run(ctx, r.moveArgs(src, rel)...)
}

// Mirror runs rsync in its deletion-only mode.
func (r *rsync) Mirror(ctx context.Context, src string) error {
	return r.run(ctx, r.mirrorArgs(src)...)
}

func (r *rsync) copyArgs(src string) []string {
	return []string{"-a", src + "/", r.dest + "/"}
}

// moveArgs builds a single-file transfer. --mkpath creates missing
// remote parents, which a tag's first file always needs (rsync itself
// only creates the final path component).
func (r *rsync) moveArgs(src, rel string) []string {
	return []string{"-a", "--mkpath", "--remove-source-files", src, r.dest + "/" + rel}
}

// mirrorArgs builds the deletion-only sync: --existing skips creating
// files, --ignore-existing skips rewriting them, --delete removes what
// the skeleton lacks.
func (r *rsync) mirrorArgs(src string) []string {
	return []string{"-r", "--existing", "--ignore-existing", "--delete", src + "/", r.dest + "/"}
}

func (r *rsync) Exists(ctx context.Context, rel string) (bool, error) {
	err := r.run(ctx, "--list-only", r.dest+"/"+path.Clean(rel))
	if err == nil {
		return true, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode == rsyncExitNoSuchFile {
		return false, nil
	}
	return false, fmt.Errorf("failed to probe %s: %w", rel, err)
}
