package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"depusage/internal/config"
	apperrors "depusage/internal/errors"
	"depusage/internal/paths"
)

var (
	configFormat    string
	configShowDiff  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect depusage configuration",
	Long:  "View the configuration loaded from .depusage/config.json and the environment",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration.

Examples:
  depusage config show              # Pretty-print current config
  depusage config show --format json
  depusage config show --diff       # Only show non-default values`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Create .depusage/config.json holding the default values.

Examples:
  depusage config init
  depusage config init --force      # Overwrite an existing file`,
	RunE: runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported DEPUSAGE_* environment variable overrides",
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	current, err := flattenConfig(cfgResult.Config)
	if err != nil {
		return err
	}
	defaults, err := flattenConfig(config.DefaultConfig())
	if err != nil {
		return err
	}
	if configShowDiff {
		current = computeDiff(current, defaults)
	}

	w := cmd.OutOrStdout()
	switch OutputFormat(configFormat) {
	case FormatJSON:
		out, err := formatJSON(ConfigShowResponse{
			ConfigPath:   cfgResult.ConfigPath,
			UsedDefaults: cfgResult.UsedDefaults,
			EnvOverrides: cfgResult.EnvOverrides,
			Config:       current,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	case FormatHuman:
		outputConfigHuman(w, cfgResult, current, defaults)
	default:
		return fmt.Errorf("unsupported format: %s", configFormat)
	}
	return nil
}

func outputConfigHuman(w io.Writer, result *config.LoadResult, current, defaults map[string]interface{}) {
	fmt.Fprintln(w, "depusage Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else {
		fmt.Fprintf(w, "Source: %s\n", result.ConfigPath)
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.EnvVar, ov.Value, ov.Path)
		}
	}
	fmt.Fprintln(w)

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		suffix := ""
		if def, ok := defaults[k]; ok && !isEqual(current[k], def) {
			suffix = fmt.Sprintf(" (default: %v)", def)
		}
		fmt.Fprintf(w, "%s: %v%s\n", k, current[k], suffix)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'depusage config env' to see supported environment variables")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := paths.ConfigPath(projectRoot)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return apperrors.Newf(apperrors.InputInvalid, "%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(projectRoot); err != nil {
		return apperrors.New(apperrors.ConfigInvalid, "cannot write config", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", paths.Display(path, projectRoot))
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Supported environment variables:")
	for _, name := range config.GetSupportedEnvVars() {
		marker := ""
		if _, ok := os.LookupEnv(name); ok {
			marker = " (set)"
		}
		fmt.Fprintf(w, "  %s%s\n", name, marker)
	}
	fmt.Fprintf(w, "\n%s selects a config file other than .depusage/config.json\n", config.ConfigPathEnvVar)
}

// flattenConfig turns the config into dotted keys (logging.level, ...).
func flattenConfig(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var nested map[string]interface{}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, err
	}
	flat := make(map[string]interface{})
	flatten("", nested, flat)
	return flat, nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// computeDiff keeps the keys whose value differs from the default.
func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for k, v := range current {
		if def, ok := defaults[k]; !ok || !isEqual(v, def) {
			diff[k] = v
		}
	}
	return diff
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
