package main

// Notes:
// - loadEnvConfig: we test every MATHPAGE_* variable. Invalid or negative
//   values for timeout and workers are ignored, not errors.
// - warnUnknownEnvVars: we test typo detection and that known vars don't warn.
// - applyEnvConfig: we test priority (env never overrides the config file).
// - Tests use t.Setenv() which prevents t.Parallel() at parent level.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-mathpage/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("MATHPAGE_CONFIG", "/etc/mathpage.yaml")
		t.Setenv("MATHPAGE_OUTPUT_KIND", "MML")
		t.Setenv("MATHPAGE_TIMEOUT", "2m")
		t.Setenv("MATHPAGE_MATHJAX_URL", "file:///mj/startup.js")
		t.Setenv("MATHPAGE_EXTENSIONS", "mhchem, physics")
		t.Setenv("MATHPAGE_FONT_URL", "https://fonts.example/")
		t.Setenv("MATHPAGE_CACHE", "redis://localhost:6379/0")
		t.Setenv("MATHPAGE_WORKERS", "3")
		t.Setenv("MATHPAGE_OUTPUT_DIR", "/out")

		cfg := loadEnvConfig()

		if cfg.ConfigPath != "/etc/mathpage.yaml" || cfg.OutputKind != "MML" || cfg.Timeout != 2*time.Minute {
			t.Errorf("tier 1 = %q/%q/%v", cfg.ConfigPath, cfg.OutputKind, cfg.Timeout)
		}
		if cfg.MathJaxURL != "file:///mj/startup.js" || cfg.Extensions != "mhchem, physics" || cfg.FontURL != "https://fonts.example/" {
			t.Errorf("engine urls = %q/%q/%q", cfg.MathJaxURL, cfg.Extensions, cfg.FontURL)
		}
		if cfg.Cache != "redis://localhost:6379/0" || cfg.Workers != 3 {
			t.Errorf("cache/workers = %q/%d", cfg.Cache, cfg.Workers)
		}
		if cfg.OutputDir != "/out" {
			t.Errorf("OutputDir = %q", cfg.OutputDir)
		}
	})

	t.Run("invalid numbers are ignored", func(t *testing.T) {
		tests := []struct {
			name, timeout, workers string
		}{
			{"garbage", "soon", "many"},
			{"negative", "-1s", "-2"},
			{"zero", "0s", "0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("MATHPAGE_TIMEOUT", tt.timeout)
				t.Setenv("MATHPAGE_WORKERS", tt.workers)

				cfg := loadEnvConfig()
				if cfg.Timeout != 0 || cfg.Workers != 0 {
					t.Errorf("Timeout/Workers = %v/%d, want zero", cfg.Timeout, cfg.Workers)
				}
			})
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("MATHPAGE_WORKER", "2")
	t.Setenv("MATHPAGE_CACHE", "memory")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	if !strings.Contains(buf.String(), "MATHPAGE_WORKER ") {
		t.Errorf("expected warning for MATHPAGE_WORKER, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "MATHPAGE_CACHE") {
		t.Errorf("known variable should not warn: %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Priority
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	env := &envConfig{
		OutputKind: "MML",
		Timeout:    time.Minute,
		MathJaxURL: "file:///mj.js",
		Extensions: "mhchem,,physics",
		FontURL:    "https://fonts/",
		Cache:      "memory",
		Workers:    2,
		OutputDir:  "/out",
	}

	t.Run("fills empty config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		applyEnvConfig(env, cfg)

		if cfg.Page.Output != "MML" || cfg.Engine.Timeout != time.Minute || cfg.Engine.Workers != 2 {
			t.Errorf("config = %+v", cfg)
		}
		if strings.Join(cfg.Engine.Extensions, "|") != "mhchem|physics" {
			t.Errorf("Extensions = %v", cfg.Engine.Extensions)
		}
		if cfg.Engine.MathJaxURL != "file:///mj.js" || cfg.Engine.FontURL != "https://fonts/" || cfg.Engine.Cache != "memory" {
			t.Errorf("engine = %+v", cfg.Engine)
		}
		if cfg.Output.DefaultDir != "/out" {
			t.Errorf("DefaultDir = %q", cfg.Output.DefaultDir)
		}
	})

	t.Run("config file wins", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Page.Output = "SVG"
		cfg.Engine.Workers = 5
		cfg.Engine.Extensions = []string{"cancel"}
		cfg.Output.DefaultDir = "/mine"
		applyEnvConfig(env, cfg)

		if cfg.Page.Output != "SVG" || cfg.Engine.Workers != 5 || cfg.Output.DefaultDir != "/mine" {
			t.Errorf("env overrode config: %+v", cfg)
		}
		if len(cfg.Engine.Extensions) != 1 || cfg.Engine.Extensions[0] != "cancel" {
			t.Errorf("Extensions = %v", cfg.Engine.Extensions)
		}
	})
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"TeX", "TeX"},
		{"AsciiMath, TeX ,MathML", "AsciiMath|TeX|MathML"},
		{" , ,", ""},
	}

	for _, tt := range tests {
		if got := strings.Join(splitList(tt.in), "|"); got != tt.want {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_EnvConfig - Env reaches the conversion
// ---------------------------------------------------------------------------

func TestRunMain_EnvConfig(t *testing.T) {
	t.Setenv("MATHPAGE_OUTPUT_KIND", "MML")
	t.Setenv("MATHPAGE_WORKERS", "2")

	env, stdout, stderr := testEnv("", &stubEngine{})
	code := runMain([]string{"mathpage", "--dump-config"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "output: mml") || !strings.Contains(stdout.String(), "workers: 2") {
		t.Errorf("env values missing from dump:\n%s", stdout.String())
	}
}
