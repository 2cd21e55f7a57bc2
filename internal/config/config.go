// Package config loads depusage settings from .depusage/config.json with
// DEPUSAGE_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"depusage/internal/paths"
	"depusage/internal/report"
)

// CurrentVersion is the supported config schema version.
const CurrentVersion = 1

// ConfigPathEnvVar points at an explicit config file.
const ConfigPathEnvVar = "DEPUSAGE_CONFIG_PATH"

// Config represents the complete depusage configuration.
type Config struct {
	Version   int    `json:"version" mapstructure:"version"`
	Manifest  string `json:"manifest" mapstructure:"manifest"`
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`

	Reports  ReportsConfig  `json:"reports" mapstructure:"reports"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ReportsConfig names the report files written per variant.
type ReportsConfig struct {
	UnusedFileName        string `json:"unusedFileName" mapstructure:"unusedFileName"`
	MisconfiguredFileName string `json:"misconfiguredFileName" mapstructure:"misconfiguredFileName"`
}

// AnalysisConfig tunes the analysis run.
type AnalysisConfig struct {
	FailOnFindings  bool `json:"failOnFindings" mapstructure:"failOnFindings"`
	MaxOpenArchives int  `json:"maxOpenArchives" mapstructure:"maxOpenArchives"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Path defaults to .depusage/history.db when empty
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Manifest:  "depusage.toml",
		OutputDir: "build/reports/dependency-analysis",
		Reports: ReportsConfig{
			UnusedFileName:        report.UnusedFileName,
			MisconfiguredFileName: report.MisconfiguredFileName,
		},
		Analysis: AnalysisConfig{
			MaxOpenArchives: 64,
		},
		History: HistoryConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// EnvOverride records one environment variable that changed the config.
type EnvOverride struct {
	EnvVar string `json:"envVar"`
	Path   string `json:"path"`
	Value  string `json:"value"`
}

// LoadResult is the outcome of LoadConfigWithDetails.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfig loads the configuration for a project root.
func LoadConfig(root string) (*Config, error) {
	result, err := LoadConfigWithDetails(root)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads the configuration and reports where it came
// from. DEPUSAGE_CONFIG_PATH wins over <root>/.depusage/config.json; a
// missing default file yields the defaults. Env overrides apply last.
func LoadConfigWithDetails(root string) (*LoadResult, error) {
	result := &LoadResult{}

	if explicit := os.Getenv(ConfigPathEnvVar); explicit != "" {
		cfg, err := loadConfigFromPath(explicit)
		if err != nil {
			return nil, err
		}
		result.Config = cfg
		result.ConfigPath = explicit
	} else {
		path := paths.ConfigPath(root)
		cfg, err := loadConfigFromPath(path)
		switch {
		case err == nil:
			result.Config = cfg
			result.ConfigPath = path
		case errors.Is(err, os.ErrNotExist):
			result.Config = DefaultConfig()
			result.UsedDefaults = true
		default:
			return nil, err
		}
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// loadConfigFromPath reads a JSON config file over the defaults.
func loadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to <root>/.depusage/config.json.
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureDataDir(root); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(root), append(data, '\n'), 0644)
}

// HistoryPath resolves the history database location against root.
func (c *Config) HistoryPath(root string) string {
	if c.History.Path == "" {
		return paths.HistoryPath(root)
	}
	return paths.Resolve(root, c.History.Path)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.OutputDir == "" {
		return &ConfigError{Field: "outputDir", Message: "must not be empty"}
	}
	for field, name := range map[string]string{
		"reports.unusedFileName":        c.Reports.UnusedFileName,
		"reports.misconfiguredFileName": c.Reports.MisconfiguredFileName,
	} {
		if name == "" || name != filepath.Base(name) {
			return &ConfigError{Field: field, Message: fmt.Sprintf("%q is not a plain file name", name)}
		}
	}
	if c.Reports.UnusedFileName == c.Reports.MisconfiguredFileName {
		return &ConfigError{Field: "reports", Message: "report file names must differ"}
	}
	if c.Analysis.MaxOpenArchives < 1 {
		return &ConfigError{Field: "analysis.maxOpenArchives", Message: "must be at least 1"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

type envKind int

const (
	envString envKind = iota
	envBool
	envInt
)

type envMapping struct {
	path string
	kind envKind
}

// envVarMappings maps DEPUSAGE_* variables to config paths.
var envVarMappings = map[string]envMapping{
	"DEPUSAGE_MANIFEST":             {"manifest", envString},
	"DEPUSAGE_OUTPUT_DIR":           {"outputDir", envString},
	"DEPUSAGE_FAIL_ON_FINDINGS":     {"analysis.failOnFindings", envBool},
	"DEPUSAGE_MAX_OPEN_ARCHIVES":    {"analysis.maxOpenArchives", envInt},
	"DEPUSAGE_HISTORY_ENABLED":      {"history.enabled", envBool},
	"DEPUSAGE_HISTORY_PATH":         {"history.path", envString},
	"DEPUSAGE_LOG_LEVEL":            {"logging.level", envString},
	"DEPUSAGE_LOG_FORMAT":           {"logging.format", envString},
	"DEPUSAGE_LOG_FILE":             {"logging.file", envString},
	"DEPUSAGE_LOG_MAX_SIZE":         {"logging.maxSize", envString},
	"DEPUSAGE_LOG_MAX_BACKUPS":      {"logging.maxBackups", envInt},
	"DEPUSAGE_REPORT_UNUSED":        {"reports.unusedFileName", envString},
	"DEPUSAGE_REPORT_MISCONFIGURED": {"reports.misconfiguredFileName", envString},
}

// GetSupportedEnvVars lists the recognized override variables, sorted.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envVarMappings))
	for name := range envVarMappings {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}

// applyEnvOverrides applies set variables in name order. Values that do not
// parse for their field are ignored.
func applyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride
	for _, name := range GetSupportedEnvVars() {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		m := envVarMappings[name]

		var value interface{}
		switch m.kind {
		case envBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				continue
			}
			value = b
		case envInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			value = n
		default:
			value = raw
		}

		if applyOverride(cfg, m.path, value) {
			overrides = append(overrides, EnvOverride{EnvVar: name, Path: m.path, Value: raw})
		}
	}
	return overrides
}

// applyOverride sets the field at path; it reports false for unknown paths
// and mismatched value types.
func applyOverride(cfg *Config, path string, value interface{}) bool {
	setString := func(dst *string) bool {
		s, ok := value.(string)
		if ok {
			*dst = s
		}
		return ok
	}
	setBool := func(dst *bool) bool {
		b, ok := value.(bool)
		if ok {
			*dst = b
		}
		return ok
	}
	setInt := func(dst *int) bool {
		n, ok := value.(int)
		if ok {
			*dst = n
		}
		return ok
	}

	switch path {
	case "manifest":
		return setString(&cfg.Manifest)
	case "outputDir":
		return setString(&cfg.OutputDir)
	case "reports.unusedFileName":
		return setString(&cfg.Reports.UnusedFileName)
	case "reports.misconfiguredFileName":
		return setString(&cfg.Reports.MisconfiguredFileName)
	case "analysis.failOnFindings":
		return setBool(&cfg.Analysis.FailOnFindings)
	case "analysis.maxOpenArchives":
		return setInt(&cfg.Analysis.MaxOpenArchives)
	case "history.enabled":
		return setBool(&cfg.History.Enabled)
	case "history.path":
		return setString(&cfg.History.Path)
	case "logging.level":
		return setString(&cfg.Logging.Level)
	case "logging.format":
		return setString(&cfg.Logging.Format)
	case "logging.file":
		return setString(&cfg.Logging.File)
	case "logging.maxSize":
		return setString(&cfg.Logging.MaxSize)
	case "logging.maxBackups":
		return setInt(&cfg.Logging.MaxBackups)
	default:
		return false
	}
}
