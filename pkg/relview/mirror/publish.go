package mirror

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
	"github.com/Cnily03/release-viewer/pkg/relview/transfer"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
	"github.com/Cnily03/release-viewer/pkg/relview/workdir"
)

// BuildPublisher rebuilds the static site from a snapshot by invoking
// an external build command. The snapshot is written (with download
// URLs rewritten through the template, when set) to a file under the
// staging directory, and the command receives its path plus the output
// directory.
type BuildPublisher struct {
	// Command is the build argv, e.g. ["relview-build"]. The config
	// path and output directory are appended as the final arguments.
	Command []string

	// BuildBase is passed through as the site's base path via
	// --base, when set.
	BuildBase string

	// WWWRoot is the directory the build writes the site into.
	WWWRoot string

	// URLTemplate rewrites download URLs in the published config; see
	// types.Config.Templated. Empty leaves the upstream URLs.
	URLTemplate string

	// Staging is where the build input config is written.
	Staging *workdir.Dir
}

// Publish writes the (templated) snapshot and runs the build command.
// Build failures surface as transfer.ExitError so the CLI reports the
// subprocess exit status.
func (p *BuildPublisher) Publish(ctx context.Context, cfg *types.Config) error {
	if len(p.Command) == 0 {
		return fmt.Errorf("no build command configured")
	}

	built := cfg.Templated(p.URLTemplate)
	cfgPath := filepath.Join(p.Staging.Root(), "build-config.json")
	if err := built.Save(cfgPath); err != nil {
		return fmt.Errorf("failed to write build config: %w", err)
	}

	args := append([]string(nil), p.Command[1:]...)
	if p.BuildBase != "" {
		args = append(args, "--base", p.BuildBase)
	}
	args = append(args, cfgPath, p.WWWRoot)

	cmdline := p.Command[0] + " " + strings.Join(args, " ")
	logging.Get("mirror").Info("building site", "cmd", cmdline)

	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		logging.Get("mirror").Error("site build failed", "cmd", cmdline, "output", strings.TrimSpace(string(out)))
		return wrapPublishErr(cmdline, err)
	}
	return nil
}

// wrapPublishErr reuses the transfer package's subprocess error kind
// so build and transfer failures map to the same exit code.
func wrapPublishErr(cmdline string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &transfer.ExitError{Cmd: cmdline, ExitCode: exitErr.ExitCode()}
	}
	return fmt.Errorf("%s: %w", cmdline, err)
}
