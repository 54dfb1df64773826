package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cnily03/release-viewer/pkg/relview/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage relview configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/relview/config.yaml (if set)
  2. ~/.config/relview/config.yaml

A .env file in the working directory and environment variables with
the RELVIEW_ prefix override config file settings:
  RELVIEW_SYNC_CONCURRENCY=8
  RELVIEW_GITHUB_TOKEN=ghp_...
  RELVIEW_S3_ENDPOINT=minio.example.com`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configPath := filepath.Join(config.Dir(), "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		cmd.Printf("Config file: %s\n\n", configPath)
	} else {
		cmd.Println("Config file: (using defaults, no file found)")
		cmd.Println()
	}

	cmd.Println("Current Configuration:")
	cmd.Println("----------------------")
	cmd.Printf("sync.concurrency:       %d\n", cfg.Sync.Concurrency)
	cmd.Printf("sync.retries:           %d\n", cfg.Sync.Retries)
	cmd.Printf("build.command:          %s\n", strings.Join(cfg.Build.Command, " "))
	cmd.Printf("journal.enabled:        %t\n", cfg.Journal.Enabled)
	cmd.Printf("journal.path:           %s\n", cfg.Journal.Path)
	cmd.Printf("journal.retention_days: %d\n", cfg.Journal.RetentionDays)
	cmd.Printf("github.api:             %s\n", cfg.GitHub.API)
	cmd.Printf("github.token:           %s\n", maskSecret(cfg.GitHub.Token))
	cmd.Printf("s3.endpoint:            %s\n", cfg.S3.Endpoint)
	cmd.Printf("s3.access_key:          %s\n", maskSecret(cfg.S3.AccessKey))
	cmd.Printf("s3.region:              %s\n", cfg.S3.Region)
	cmd.Printf("s3.use_ssl:             %t\n", cfg.S3.UseSSL)
	cmd.Printf("logging.level:          %s\n", cfg.Logging.Level)

	cmd.Println("\nEnvironment Overrides:")
	cmd.Println("----------------------")
	envVars := []string{
		"RELVIEW_SYNC_CONCURRENCY",
		"RELVIEW_SYNC_RETRIES",
		"RELVIEW_GITHUB_API",
		"RELVIEW_GITHUB_TOKEN",
		"RELVIEW_S3_ENDPOINT",
		"RELVIEW_S3_ACCESS_KEY",
		"RELVIEW_S3_SECRET_KEY",
		"RELVIEW_JOURNAL_PATH",
		"RELVIEW_LOGGING_LEVEL",
		"GITHUB_TOKEN",
	}

	anyOverrides := false
	for _, name := range envVars {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if strings.Contains(name, "TOKEN") || strings.Contains(name, "KEY") {
			val = maskSecret(val)
		}
		cmd.Printf("%s=%s\n", name, val)
		anyOverrides = true
	}
	if !anyOverrides {
		cmd.Println("(none)")
	}

	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configPath := filepath.Join(config.Dir(), "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(config.Dir(), "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		cmd.Printf("Config file already exists: %s\n", configPath)
		cmd.Println("Use 'relview config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	cmd.Printf("Created default config file: %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cmd.Println(filepath.Join(config.Dir(), "config.yaml"))
	return nil
}

// maskSecret hides all but the first four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 4)
}
