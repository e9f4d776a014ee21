//go:build integration

package mathjax

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestEngine_Integration(t *testing.T) {
	e := New(Options{})
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tests := []struct {
		name    string
		req     Request
		kind    string
		want    string
		wantErr bool
	}{
		{"inline TeX to MathML", Request{Math: "x^2", Format: "inline-TeX", Outputs: []string{"mml"}, Ex: 6, Width: 100}, "mml", "<math", false},
		{"TeX to SVG", Request{Math: `\frac{a}{b}`, Format: "TeX", Outputs: []string{"svg"}, Ex: 6, Width: 100, UseFontCache: true}, "svg", "<svg", false},
		{"AsciiMath to HTML", Request{Math: "sum_(i=1)^n i", Format: "AsciiMath", Outputs: []string{"html"}, Ex: 6, Width: 100}, "html", "mjx-container", false},
		{"MathML to SVG", Request{Math: "<math><mi>y</mi></math>", Format: "MathML", Outputs: []string{"svg"}, Ex: 6, Width: 100}, "svg", "<svg", false},
		{"TeX error", Request{Math: `\frac{`, Format: "TeX", Outputs: []string{"svg"}, Ex: 6, Width: 100}, "svg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Typeset(ctx, tt.req)
			if err != nil {
				t.Fatalf("Typeset() error = %v", err)
			}
			if tt.wantErr {
				if len(res.Errors) == 0 {
					t.Error("Typeset() Errors empty, want a TeX error")
				}
				return
			}
			if len(res.Errors) > 0 {
				t.Fatalf("Typeset() Errors = %v", res.Errors)
			}
			if got := res.Outputs[tt.kind]; !strings.Contains(got, tt.want) {
				t.Errorf("Outputs[%q] = %q, want it to contain %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestEngine_StylesheetCall(t *testing.T) {
	e := New(Options{})
	defer e.Close()

	res, err := e.Typeset(context.Background(), Request{Format: "TeX", Outputs: []string{"svg"}, CSS: true, Ex: 6, Width: 100})
	if err != nil {
		t.Fatalf("Typeset() error = %v", err)
	}
	if res.CSS == "" {
		t.Error("CSS empty for stylesheet-only call")
	}
	if len(res.Outputs) != 0 {
		t.Errorf("Outputs = %v, want none for empty math", res.Outputs)
	}
}
