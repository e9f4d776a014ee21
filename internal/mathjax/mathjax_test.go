package mathjax

// Notes:
// - Browser-backed behavior lives in mathjax_integration_test.go
// - These tests cover the pure parts: startup config selection and the
//   bootstrap page

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestConfigFor - Startup configuration keys
// ---------------------------------------------------------------------------

func TestConfigFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
		want pageConfig
	}{
		{"defaults", Request{EquationNumbers: "none", UseFontCache: true}, pageConfig{"none", "local", false}},
		{"global wins over local", Request{UseFontCache: true, UseGlobalCache: true}, pageConfig{"none", "global", false}},
		{"no cache", Request{}, pageConfig{"none", "none", false}},
		{"ams numbering", Request{EquationNumbers: "AMS"}, pageConfig{"ams", "none", false}},
		{"all numbering", Request{EquationNumbers: "all"}, pageConfig{"all", "none", false}},
		{"unknown numbering", Request{EquationNumbers: "roman"}, pageConfig{"none", "none", false}},
		{"speech", Request{SpeakText: true, SpeakRuleset: "mathspeak"}, pageConfig{"none", "none", true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := configFor(tt.req); got != tt.want {
				t.Errorf("configFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBootstrapHTML - Page content
// ---------------------------------------------------------------------------

func TestBootstrapHTML(t *testing.T) {
	t.Parallel()

	opts := Options{
		URL:        "https://example.test/startup.js",
		Extensions: []string{"mhchem", " ", "cancel"},
		FontURL:    "https://fonts.example.test",
	}

	got, err := bootstrapHTML(opts, pageConfig{EquationNumbers: "ams", FontCache: "global"})
	if err != nil {
		t.Fatalf("bootstrapHTML() error = %v", err)
	}

	for _, want := range []string{
		`<script src="https://example.test/startup.js">`,
		`"[tex]/mhchem"`,
		`"[tex]/cancel"`,
		`"[+]":["mhchem","cancel"]`,
		`"tags":"ams"`,
		`"fontCache":"global"`,
		`"fontURL":"https://fonts.example.test"`,
		"window.mathpageTypeset",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("bootstrapHTML() missing %q", want)
		}
	}
}

func TestBootstrapHTML_NoExtensions(t *testing.T) {
	t.Parallel()

	got, err := bootstrapHTML(Options{URL: DefaultURL}, pageConfig{"none", "local", false})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, `"packages"`) {
		t.Error("bootstrapHTML() sets tex.packages without extensions")
	}
	if strings.Contains(got, `"a11y/sre"`) {
		t.Error("bootstrapHTML() loads the speech engine with speech off")
	}
}

func TestBootstrapHTML_Speech(t *testing.T) {
	t.Parallel()

	got, err := bootstrapHTML(Options{URL: DefaultURL}, pageConfig{"none", "none", true})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"a11y/sre"`, "req.speakRuleset", "req.speakStyle", "aria-label"} {
		if !strings.Contains(got, want) {
			t.Errorf("bootstrapHTML() missing %q", want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestEngine - Lifecycle without a browser
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	e := New(Options{})
	if e.opts.URL != DefaultURL {
		t.Errorf("URL = %q, want %q", e.opts.URL, DefaultURL)
	}
	if e.opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", e.opts.Timeout, DefaultTimeout)
	}
	if e.opts.LoadTimeout != DefaultLoadTimeout {
		t.Errorf("LoadTimeout = %v, want %v", e.opts.LoadTimeout, DefaultLoadTimeout)
	}
}

func TestEngine_TypesetAfterClose(t *testing.T) {
	t.Parallel()

	e := New(Options{})
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := e.Typeset(context.Background(), Request{Math: "x"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Typeset() error = %v, want ErrClosed", err)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(Options{})
	defer e.Close()
	if _, err := e.Typeset(ctx, Request{Math: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Typeset() error = %v, want context.Canceled", err)
	}
}
