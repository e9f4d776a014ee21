package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mathpage"
	"github.com/alnah/go-mathpage/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxURLLength       = 2048 // Browser limit
	MaxPathLength      = 4096 // PATH_MAX on Linux
	MaxDelimiterLength = 16   // "\begin{math}" fits
	MaxExtensionLength = 64   // "[tex]/physics"
	MaxRulesetLength   = 50   // "mathspeak", "clearspeak"
	MaxCacheSpecLength = 2048 // redis URL with credentials
)

// Range limits for numeric fields.
const (
	MaxWorkers     = 64
	MaxConcurrency = 256
	MaxEx          = 1000.0
	MaxWidth       = 100000.0
)

// configDirName is the directory searched under the user config dir.
const configDirName = "go-mathpage"

// Config holds everything the CLI can read from a file. Page and Typeset
// decode straight into the library's option structs.
type Config struct {
	Page    mathpage.PageOptions    `yaml:"page"`
	Typeset mathpage.TypesetOptions `yaml:"typeset"`
	Engine  EngineConfig            `yaml:"engine"`
	Output  OutputConfig            `yaml:"output"`
}

// EngineConfig defines how engines are created and shared.
type EngineConfig struct {
	MathJaxURL  string        `yaml:"mathjaxURL"`  // Empty = jsDelivr MathJax 3
	Extensions  []string      `yaml:"extensions"`  // TeX packages, e.g. "mhchem"
	FontURL     string        `yaml:"fontURL"`     // CommonHTML web font location
	Workers     int           `yaml:"workers"`     // Pool size (0 = auto)
	Concurrency int           `yaml:"concurrency"` // In-flight calls per job (0 = default)
	Timeout     time.Duration `yaml:"timeout"`     // Whole-job bound (0 = default)
	Cache       string        `yaml:"cache"`       // "", "memory", "memory:N", "redis://..."
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default output directory (empty = same as source)
}

// Validate checks lengths and ranges so a bad file fails early with the
// offending key.
func (c *Config) Validate() error {
	if err := validateFieldLength("engine.mathjaxURL", c.Engine.MathJaxURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("engine.fontURL", c.Engine.FontURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("engine.cache", c.Engine.Cache, MaxCacheSpecLength); err != nil {
		return err
	}
	for i, ext := range c.Engine.Extensions {
		if err := validateFieldLength(fmt.Sprintf("engine.extensions[%d]", i), ext, MaxExtensionLength); err != nil {
			return err
		}
	}
	if c.Engine.Workers < 0 || c.Engine.Workers > MaxWorkers {
		return fmt.Errorf("%w: engine.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Engine.Workers)
	}
	if c.Engine.Concurrency < 0 || c.Engine.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: engine.concurrency must be between 0 and %d, got %d", ErrInvalidValue, MaxConcurrency, c.Engine.Concurrency)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("%w: engine.timeout must not be negative", ErrInvalidValue)
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}

	if tex := c.Page.TeX; tex != nil {
		if err := validateDelimiters("page.tex.inlineMath", tex.InlineMath); err != nil {
			return err
		}
		if err := validateDelimiters("page.tex.displayMath", tex.DisplayMath); err != nil {
			return err
		}
	}
	if ascii := c.Page.AsciiMath; ascii != nil {
		if err := validateDelimiters("page.ascii.delimiters", ascii.Delimiters); err != nil {
			return err
		}
	}

	ts := c.Typeset
	if ts.Ex != nil && (*ts.Ex <= 0 || *ts.Ex > MaxEx) {
		return fmt.Errorf("%w: typeset.ex must be in (0, %g], got %g", ErrInvalidValue, MaxEx, *ts.Ex)
	}
	if ts.Width != nil && (*ts.Width <= 0 || *ts.Width > MaxWidth) {
		return fmt.Errorf("%w: typeset.width must be in (0, %g], got %g", ErrInvalidValue, MaxWidth, *ts.Width)
	}
	if ts.EquationNumbers != "" {
		switch strings.ToLower(ts.EquationNumbers) {
		case "none", "ams", "all":
			// valid
		default:
			return fmt.Errorf("%w: typeset.equationNumbers %q (must be none, AMS, or all)", ErrInvalidValue, ts.EquationNumbers)
		}
	}
	if err := validateFieldLength("typeset.speakRuleset", ts.SpeakRuleset, MaxRulesetLength); err != nil {
		return err
	}
	if err := validateFieldLength("typeset.speakStyle", ts.SpeakStyle, MaxRulesetLength); err != nil {
		return err
	}
	if ts.Timeout != nil && *ts.Timeout < 0 {
		return fmt.Errorf("%w: typeset.timeout must not be negative", ErrInvalidValue)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateDelimiters(fieldName string, ds []mathpage.Delimiter) error {
	for i, d := range ds {
		if d.Open == "" || d.Close == "" {
			return fmt.Errorf("%w: %s[%d] needs both open and close", ErrInvalidValue, fieldName, i)
		}
		if err := validateFieldLength(fmt.Sprintf("%s[%d]", fieldName, i), d.Open+d.Close, 2*MaxDelimiterLength); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfig returns a configuration that leaves every option to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dump renders cfg as YAML, the same shape LoadConfig reads.
func Dump(cfg *Config) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\") || strings.HasSuffix(s, ".yaml") || strings.HasSuffix(s, ".yml")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-mathpage/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, configDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
