package main

import (
	"bytes"
	"context"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-mathpage"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Stub engine and environment
// ---------------------------------------------------------------------------

// stubEngine returns every formula as MathML wrapping its source, and fails
// formulas listed in bad.
type stubEngine struct {
	mu    sync.Mutex
	calls []mathpage.Request
	bad   map[string]bool
}

func (s *stubEngine) Typeset(_ context.Context, req mathpage.Request) (*mathpage.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.bad[req.Math] {
		return &mathpage.Result{Errors: []string{"TeX parse error: " + req.Math}}, nil
	}
	out := make(map[string]string, len(req.Outputs))
	for _, kind := range req.Outputs {
		out[kind] = "<math><mi>" + html.EscapeString(req.Math) + "</mi></math>"
	}
	return &mathpage.Result{Outputs: out}, nil
}

func (s *stubEngine) Close() error { return nil }

// Requests returns the formula calls, skipping stylesheet-only calls.
func (s *stubEngine) Requests() []mathpage.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reqs []mathpage.Request
	for _, r := range s.calls {
		if r.Math != "" {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// testEnv returns an environment with captured output and a stub engine
// shared by every pooled slot.
func testEnv(stdin string, eng *stubEngine) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Environment{
		Now:       func() time.Time { return now },
		Stdin:     strings.NewReader(stdin),
		Stdout:    &stdout,
		Stderr:    &stderr,
		NewEngine: func() (mathpage.Engine, error) { return eng, nil },
	}, &stdout, &stderr
}

// writeFile creates a file under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// readFile returns the content at path or fails the test.
func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
