package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Cnily03/release-viewer/pkg/relview/config"
	"github.com/Cnily03/release-viewer/pkg/relview/fetch"
	"github.com/Cnily03/release-viewer/pkg/relview/github"
	"github.com/Cnily03/release-viewer/pkg/relview/logging"
	"github.com/Cnily03/release-viewer/pkg/relview/manifest"
	"github.com/Cnily03/release-viewer/pkg/relview/mirror"
	"github.com/Cnily03/release-viewer/pkg/relview/output"
	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
	"github.com/Cnily03/release-viewer/pkg/relview/transfer"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
	"github.com/Cnily03/release-viewer/pkg/relview/workdir"
)

// syncFlags holds the validated flag values of one sync invocation.
type syncFlags struct {
	repo        string
	target      string
	urlTemplate string
	failFast    bool
	fastSync    bool
	concurrency int
	buildBase   string
	wwwRoot     string
	savePath    string
	comparePath string
	format      string
}

// parseSyncFlags reads and validates the root command's flags.
func parseSyncFlags(cmd *cobra.Command, args []string) (*syncFlags, error) {
	f := &syncFlags{repo: args[0]}
	if owner, name, ok := strings.Cut(f.repo, "/"); !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q: want owner/repo", f.repo)
	}

	flags := cmd.Flags()
	f.target, _ = flags.GetString("download-target")
	f.urlTemplate, _ = flags.GetString("url-template")
	f.failFast, _ = flags.GetBool("fast-fail")
	f.fastSync, _ = flags.GetBool("fast-sync")
	f.concurrency, _ = flags.GetInt("concurrency")
	f.buildBase, _ = flags.GetString("build-base")
	f.wwwRoot, _ = flags.GetString("www-root")
	f.savePath, _ = flags.GetString("save")
	f.comparePath, _ = flags.GetString("compare")
	f.format, _ = flags.GetString("format")

	if flags.Changed("concurrency") && f.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be a positive integer, got %d", f.concurrency)
	}
	if _, err := output.Get(f.format); err != nil {
		return nil, fmt.Errorf("invalid format %q: available %s", f.format, strings.Join(output.Available(), ", "))
	}
	return f, nil
}

// runSync is the root command handler: fetch, diff, fix, transfer,
// publish, remove.
func runSync(cmd *cobra.Command, args []string) error {
	f, err := parseSyncFlags(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if f.concurrency == 0 {
		f.concurrency = cfg.Sync.Concurrency
	}

	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Close()
	logger := logging.Get("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The staging tree is exclusive to this run and reclaimed on
	// every exit path, including interrupts.
	staging, err := workdir.New("", "relview")
	if err != nil {
		return fmt.Errorf("%w: %v", errInternal, err)
	}
	defer func() {
		if err := staging.Cleanup(); err != nil {
			logger.Warn("staging cleanup failed", "error", err)
		}
	}()

	var target transfer.Transferrer
	if f.target != "" {
		target, err = transfer.Resolve(f.target, transfer.Options{S3: transfer.S3Options(cfg.S3)})
		if err != nil {
			return err
		}
	}

	current, err := fetchCurrent(ctx, cfg, f.repo)
	if err != nil {
		return err
	}

	previous, err := loadCompare(f.comparePath, logger)
	if err != nil {
		return err
	}

	rec := reconcile.Compute(current, previous)
	if target != nil {
		err := rec.DeriveFix(ctx, func(ctx context.Context, tag, filename string) (bool, error) {
			return target.Exists(ctx, tag+"/"+filename)
		}, f.concurrency)
		if err != nil {
			return err
		}
	}

	var publisher mirror.Publisher
	if f.wwwRoot != "" {
		publisher = &mirror.BuildPublisher{
			Command:     cfg.Build.Command,
			BuildBase:   f.buildBase,
			WWWRoot:     f.wwwRoot,
			URLTemplate: f.urlTemplate,
			Staging:     staging,
		}
	}

	downloader := fetch.New(fetch.WithRetries(cfg.Sync.Retries))
	syncer := mirror.New(target, downloader, publisher, staging, mirror.Options{
		FailFast:    f.failFast,
		FastSync:    f.fastSync,
		Concurrency: f.concurrency,
	})

	res, runErr := syncer.Run(ctx, rec, current, previous)
	if res != nil {
		journalRun(cfg, res, logger)
	}
	if runErr != nil {
		return runErr
	}

	if f.savePath != "" {
		if err := current.Save(f.savePath); err != nil {
			return fmt.Errorf("%w: %v", errInternal, err)
		}
	}

	return render(cmd, f.format, res)
}

// initLogging wires the config's logging section into the logging
// package.
func initLogging(cfg *config.Config) error {
	var maxSize int64
	if cfg.Logging.Rotation.MaxSize != "" {
		parsed, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid logging.rotation.max_size %q: %w", cfg.Logging.Rotation.MaxSize, err)
		}
		maxSize = int64(parsed)
	}

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		Components:   cfg.Logging.Components,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
	}
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// fetchCurrent ingests the current snapshot from the releases API.
func fetchCurrent(ctx context.Context, cfg *config.Config, repo string) (*types.Config, error) {
	client := github.New(
		github.WithBaseURL(cfg.GitHub.API),
		github.WithToken(cfg.GitHub.Token),
	)
	return client.Releases(ctx, repo)
}

// loadCompare reads the previous snapshot. A missing file is a warning
// and means "no previous snapshot"; a malformed one is fatal because
// silently treating everything as new would re-download the world.
func loadCompare(path string, logger *logging.Logger) (*types.Config, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("compare snapshot missing, treating all releases as new", "path", path)
		fmt.Fprintf(os.Stderr, "Warning: compare snapshot %s not found, treating all releases as new\n", path)
		return nil, nil
	}
	previous, err := types.Load(path)
	if err != nil {
		return nil, fmt.Errorf("invalid compare snapshot: %w", err)
	}
	return previous, nil
}

// journalRun best-effort appends the run to the sync journal.
func journalRun(cfg *config.Config, res *mirror.Result, logger *logging.Logger) {
	if !cfg.Journal.Enabled {
		return
	}
	m, err := manifest.New(cfg.Journal.Path)
	if err != nil {
		logger.Warn("journal disabled", "error", err)
		return
	}

	failed := make([]manifest.FailedRecord, 0, len(res.Failed))
	for _, item := range res.Failed {
		failed = append(failed, manifest.FailedRecord(item))
	}
	_, err = m.LogSync(manifest.Entry{
		Repo:            res.Repo,
		Summary:         res.Summary,
		Downloaded:      res.Downloaded,
		DownloadedBytes: res.DownloadedBytes,
		Failed:          failed,
		Published:       res.Published,
		Duration:        res.Duration,
	})
	if err != nil {
		logger.Warn("failed to journal run", "error", err)
	}
	if err := m.Cleanup(cfg.Journal.RetentionDays); err != nil {
		logger.Warn("journal cleanup failed", "error", err)
	}
}

// render formats the result to the command's stdout.
func render(cmd *cobra.Command, format string, res *mirror.Result) error {
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("%w: %v", errInternal, err)
	}
	cmd.Print(buf.String())
	return nil
}
