package main

// Notes:
// - runMain: we test subcommand dispatch and exit codes end to end with a
//   stub engine injected through Environment.NewEngine. Real MathJax runs are
//   covered by the integration tests of internal/mathjax.
// - Environment variables are read by runConvert; tests that set them cannot
//   use t.Parallel().
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain_Commands - Subcommand dispatch
// ---------------------------------------------------------------------------

func TestRunMain_Commands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"version command", []string{"mathpage", "version"}, ExitSuccess, "mathpage dev", ""},
		{"version flag", []string{"mathpage", "--version"}, ExitSuccess, "mathpage dev", ""},
		{"help", []string{"mathpage", "help"}, ExitSuccess, "Usage: mathpage", ""},
		{"help flag", []string{"mathpage", "-h"}, ExitSuccess, "--output-kind", ""},
		{"help doctor", []string{"mathpage", "help", "doctor"}, ExitSuccess, "mathpage doctor [--json]", ""},
		{"help unknown", []string{"mathpage", "help", "nope"}, ExitSuccess, "", "Unknown command: nope"},
		{"completion usage", []string{"mathpage", "completion"}, ExitSuccess, "Supported shells", ""},
		{"completion bad shell", []string{"mathpage", "completion", "tcsh"}, ExitUsage, "", "unsupported shell"},
		{"unknown flag", []string{"mathpage", "--nope"}, ExitUsage, "", "mathpage help"},
		{"bad output kind", []string{"mathpage", "--output-kind", "PNG"}, ExitUsage, "", "invalid output kind"},
		{"bad timeout", []string{"mathpage", "--timeout", "soon"}, ExitUsage, "", "invalid duration"},
		{"negative workers", []string{"mathpage", "--workers", "-1"}, ExitUsage, "", "invalid worker count"},
		{"bad eqno", []string{"mathpage", "--eqno", "roman"}, ExitUsage, "", "equationNumbers"},
		{"bad cache", []string{"mathpage", "--cache", "memcached://x"}, ExitUsage, "", "supported caches"},
		{"missing config", []string{"mathpage", "-c", "/nonexistent/cfg.yaml"}, ExitUsage, "", "config file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("<p>\\(x\\)</p>", &stubEngine{})
			code := runMain(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout missing %q:\n%s", tt.wantStdout, stdout.String())
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantStderr, stderr.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_Stdin - Stream mode
// ---------------------------------------------------------------------------

func TestRunMain_Stdin(t *testing.T) {
	t.Parallel()

	eng := &stubEngine{}
	env, stdout, stderr := testEnv(`<p>Area: \(a^2\) and $b$</p>`, eng)

	code := runMain([]string{"mathpage", "--output-kind", "MML", "--fragment"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	got := stdout.String()
	for _, want := range []string{"<math><mi>a^2</mi></math>", "<math><mi>b</mi></math>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<body>") {
		t.Errorf("--fragment output should not contain <body>:\n%s", got)
	}
}

func TestRunMain_StdinNoDollars(t *testing.T) {
	t.Parallel()

	eng := &stubEngine{}
	env, stdout, stderr := testEnv(`<p>costs $5 and $6</p>`, eng)

	code := runMain([]string{"mathpage", "--output-kind", "MML", "--nodollars", "--fragment"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if len(eng.Requests()) != 0 {
		t.Errorf("engine calls = %d, want 0 with --nodollars", len(eng.Requests()))
	}
	if !strings.Contains(stdout.String(), "costs $5 and $6") {
		t.Errorf("text changed:\n%s", stdout.String())
	}
}

func TestRunMain_StdinMarkdown(t *testing.T) {
	t.Parallel()

	eng := &stubEngine{}
	env, stdout, stderr := testEnv("# Title\n\nEnergy: $$E=mc^2$$\n", eng)

	code := runMain([]string{"mathpage", "--output-kind", "MML", "--markdown", "--fragment"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "<h1") || !strings.Contains(stdout.String(), "<mi>E=mc^2</mi>") {
		t.Errorf("markdown page not converted:\n%s", stdout.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_Files - Batch mode
// ---------------------------------------------------------------------------

func TestRunMain_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.html", `<p>\(x\)</p>`)
	b := writeFile(t, dir, "b.md", "Display $$y$$ math.\n")
	outDir := filepath.Join(dir, "out")

	env, stdout, stderr := testEnv("", &stubEngine{})
	code := runMain([]string{"mathpage", "--output-kind", "MML", "-o", outDir, a, b}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	if got := readFile(t, filepath.Join(outDir, "a.html")); !strings.Contains(got, "<mi>x</mi>") {
		t.Errorf("a.html not converted:\n%s", got)
	}
	if got := readFile(t, filepath.Join(outDir, "b.html")); !strings.Contains(got, "<mi>y</mi>") {
		t.Errorf("b.html not converted:\n%s", got)
	}
	if !strings.Contains(stdout.String(), "2 succeeded, 0 failed") {
		t.Errorf("summary missing:\n%s", stdout.String())
	}
}

func TestRunMain_FilesDefaultOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "page.html", `<p>\(z\)</p>`)

	env, stdout, stderr := testEnv("", &stubEngine{})
	code := runMain([]string{"mathpage", "--output-kind", "MML", in}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	want := filepath.Join(dir, "page.out.html")
	if !strings.Contains(stdout.String(), "Created "+want) {
		t.Errorf("stdout = %q, want Created %s", stdout.String(), want)
	}
	if got := readFile(t, want); !strings.Contains(got, "<mi>z</mi>") {
		t.Errorf("output not converted:\n%s", got)
	}
}

func TestRunMain_MissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	env, _, stderr := testEnv("", &stubEngine{})

	code := runMain([]string{"mathpage", filepath.Join(dir, "nope.html")}, env)
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	if !strings.Contains(stderr.String(), "FAILED") || !strings.Contains(stderr.String(), "1 conversion(s) failed") {
		t.Errorf("stderr = %s", stderr.String())
	}
}

func TestRunMain_FormulaFailureWarns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "page.html", `<p>\(ok\) \(bad\)</p>`)

	env, _, stderr := testEnv("", &stubEngine{bad: map[string]bool{"bad": true}})
	code := runMain([]string{"mathpage", "--output-kind", "MML", "--quiet", in}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want success (formula failures stay in the page)", code)
	}
	if !strings.Contains(stderr.String(), "1 of 2 formulas failed") {
		t.Errorf("warning missing:\n%s", stderr.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_DumpConfig - Effective config output
// ---------------------------------------------------------------------------

func TestRunMain_DumpConfig(t *testing.T) {
	t.Parallel()

	env, stdout, stderr := testEnv("", &stubEngine{})
	code := runMain([]string{"mathpage", "--dump-config", "--output-kind", "CommonHTML", "--speechrules", "chromevox", "--workers", "2"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	got := stdout.String()
	for _, want := range []string{"output: html", "speakRuleset: default", "workers: 2", "singleDollars: true"} {
		if !strings.Contains(got, want) {
			t.Errorf("dump missing %q:\n%s", want, got)
		}
	}
}
