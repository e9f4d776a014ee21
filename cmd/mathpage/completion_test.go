package main

// Notes:
// - GenerateCompletion: we test that shell scripts are generated with expected
//   content markers. We do not test that the scripts actually work in the
//   target shell (that would require integration tests with actual shells).
// - extractFlagsFromFlagSet: we test types and metadata come from the real
//   FlagSet so completion never drifts from the parser.
// These are acceptable gaps: we test observable behavior, not runtime shell behavior.

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion_SupportedShells - Script generation
// ---------------------------------------------------------------------------

func TestGenerateCompletion_SupportedShells(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell        Shell
		wantContains []string
	}{
		{ShellBash, []string{"_mathpage()", "complete -o filenames -F _mathpage mathpage", "--output-kind", "SVG CommonHTML MML", "doctor"}},
		{ShellZsh, []string{"#compdef mathpage", "--eqno", "(none AMS all)", "_files -g '*.(yaml|yml)'", "_files -/"}},
		{ShellFish, []string{"complete -c mathpage -l output-kind", "-l output -s o", "__fish_complete_directories", "-l quiet -s q"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion(%s) error: %v", tt.shell, err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%s script missing %q", tt.shell, want)
				}
			}
		})
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()

	err := GenerateCompletion(&bytes.Buffer{}, Shell("powershell"))
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Errorf("error = %v, want ErrUnsupportedShell", err)
	}
}

// ---------------------------------------------------------------------------
// TestCompletionFlags - Metadata from the FlagSet
// ---------------------------------------------------------------------------

func TestCompletionFlags(t *testing.T) {
	t.Parallel()

	byName := map[string]flagDef{}
	for _, f := range completionFlags() {
		byName[f.Long] = f
	}

	tests := []struct {
		name  string
		want  flagType
		short string
	}{
		{"output-kind", flagEnum, ""},
		{"eqno", flagEnum, ""},
		{"config", flagFile, "c"},
		{"output", flagDir, "o"},
		{"speech", flagBool, ""},
		{"workers", flagNumber, "w"},
		{"ex", flagNumber, ""},
		{"mathjax-url", flagString, ""},
	}

	for _, tt := range tests {
		f, ok := byName[tt.name]
		if !ok {
			t.Errorf("flag %q missing from completion", tt.name)
			continue
		}
		if f.Type != tt.want || f.Short != tt.short {
			t.Errorf("flag %q = type %d short %q, want type %d short %q", tt.name, f.Type, f.Short, tt.want, tt.short)
		}
	}
}

func TestZshGlob(t *testing.T) {
	t.Parallel()

	if got := zshGlob("*.yaml,*.yml"); got != "*.(yaml|yml)" {
		t.Errorf("zshGlob() = %q", got)
	}
}
