package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-mathpage/internal/config"
)

// envPrefix starts every environment variable the CLI reads.
const envPrefix = "MATHPAGE_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // MATHPAGE_CONFIG: config file path
	OutputKind string        // MATHPAGE_OUTPUT_KIND: SVG, CommonHTML, MML
	Timeout    time.Duration // MATHPAGE_TIMEOUT: whole-page timeout

	// Tier 2 - Engine
	MathJaxURL string // MATHPAGE_MATHJAX_URL: MathJax startup script
	Extensions string // MATHPAGE_EXTENSIONS: comma-separated TeX packages
	FontURL    string // MATHPAGE_FONT_URL: CommonHTML web fonts
	Cache      string // MATHPAGE_CACHE: result cache spec
	Workers    int    // MATHPAGE_WORKERS: browser engines

	// Tier 3 - I/O
	OutputDir string // MATHPAGE_OUTPUT_DIR: default output directory
}

// knownEnvVars lists valid MATHPAGE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"MATHPAGE_CONFIG":      true,
	"MATHPAGE_OUTPUT_KIND": true,
	"MATHPAGE_TIMEOUT":     true,
	// Tier 2 - Engine
	"MATHPAGE_MATHJAX_URL": true,
	"MATHPAGE_EXTENSIONS":  true,
	"MATHPAGE_FONT_URL":    true,
	"MATHPAGE_CACHE":       true,
	"MATHPAGE_WORKERS":     true,
	// Tier 3 - I/O
	"MATHPAGE_OUTPUT_DIR": true,
	// Read by doctor
	"MATHPAGE_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Returns a struct with all recognized MATHPAGE_* values.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("MATHPAGE_CONFIG"),
		OutputKind: os.Getenv("MATHPAGE_OUTPUT_KIND"),
		MathJaxURL: os.Getenv("MATHPAGE_MATHJAX_URL"),
		Extensions: os.Getenv("MATHPAGE_EXTENSIONS"),
		FontURL:    os.Getenv("MATHPAGE_FONT_URL"),
		Cache:      os.Getenv("MATHPAGE_CACHE"),
		OutputDir:  os.Getenv("MATHPAGE_OUTPUT_DIR"),
	}

	// Invalid numbers are ignored, not errors
	if timeout := os.Getenv("MATHPAGE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if workers := os.Getenv("MATHPAGE_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MATHPAGE_* variables.
// Helps catch typos like MATHPAGE_WORKER instead of MATHPAGE_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Only sets values if the env var is set AND the config value is empty/zero.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutputKind != "" && cfg.Page.Output == "" {
		cfg.Page.Output = env.OutputKind
	}
	if env.Timeout > 0 && cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = env.Timeout
	}

	if env.MathJaxURL != "" && cfg.Engine.MathJaxURL == "" {
		cfg.Engine.MathJaxURL = env.MathJaxURL
	}
	if env.Extensions != "" && len(cfg.Engine.Extensions) == 0 {
		cfg.Engine.Extensions = splitList(env.Extensions)
	}
	if env.FontURL != "" && cfg.Engine.FontURL == "" {
		cfg.Engine.FontURL = env.FontURL
	}
	if env.Cache != "" && cfg.Engine.Cache == "" {
		cfg.Engine.Cache = env.Cache
	}
	if env.Workers > 0 && cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = env.Workers
	}

	if env.OutputDir != "" && cfg.Output.DefaultDir == "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
