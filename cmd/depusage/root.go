package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"depusage/internal/config"
	apperrors "depusage/internal/errors"
	"depusage/internal/paths"
	"depusage/internal/slogutil"
	"depusage/internal/version"
)

var (
	projectFlag string
	verbosity   int
	quiet       bool

	// Set up by PersistentPreRunE for every command.
	projectRoot string
	cfgResult   *config.LoadResult
	logger      = slogutil.NewDiscardLogger()
	logCloser   io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "depusage",
	Short: "depusage - dependency usage analyzer for Android variants",
	Long: `depusage inspects the compiled classes of an Android build variant and the
artifacts of its declared dependencies, then reports which direct dependencies
are unused, which transitive ones should be declared directly, and which api
declarations could be implementation.`,
	Version:           version.Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".", "Project root holding .depusage/ and the manifest")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}

// setup resolves the project root, loads the configuration and builds the
// logger shared by all commands.
func setup(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(projectFlag)
	if err != nil {
		return apperrors.New(apperrors.InputInvalid, "cannot resolve project root", err)
	}
	projectRoot = root

	result, err := config.LoadConfigWithDetails(projectRoot)
	if err != nil {
		return apperrors.New(apperrors.ConfigInvalid, "cannot load configuration", err)
	}
	cfgResult = result

	l, closer, err := newLogger(cmd.ErrOrStderr(), result.Config)
	if err != nil {
		return apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("cannot open log file %s", result.Config.Logging.File), err)
	}
	closeLogger()
	logger, logCloser = l, closer

	logger.Debug("Loaded configuration",
		"project", projectRoot,
		"configPath", result.ConfigPath,
		"usedDefaults", result.UsedDefaults,
		"envOverrides", len(result.EnvOverrides),
	)
	return nil
}

// newLogger applies CLI verbosity over logging.level for the console; the
// optional log file records at least info.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	fileLevel := slog.LevelInfo
	if level < fileLevel {
		fileLevel = level
	}

	return slogutil.Setup(w, slogutil.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		File:       paths.Resolve(projectRoot, cfg.Logging.File),
		FileLevel:  fileLevel,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// closeLogger releases the log file and falls back to discarding.
func closeLogger() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	logger = slogutil.NewDiscardLogger()
}

// resolveFlagPath anchors flag-relative paths at the working directory.
func resolveFlagPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", apperrors.New(apperrors.InputInvalid, fmt.Sprintf("cannot resolve %s", p), err)
	}
	return abs, nil
}
