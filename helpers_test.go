package mathpage

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Fake engine
// ---------------------------------------------------------------------------

// fakeEngine answers every request with deterministic markup per kind:
//   - mml: <math><mi>SRC</mi></math>
//   - svg: <svg class="fake"><title>SRC</title></svg>
//   - html: <span class="fake-chtml">SRC</span>
//   - other kinds: "payload:SRC"
//
// The empty-math stylesheet call returns CSS "engine-css" when asked for CSS.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []Request
	jitter  time.Duration                      // random delay per call, shuffles completions
	respond func(req Request) (*Result, error) // overrides the default answer
	hang    bool                               // formula calls wait for ctx
	closed  bool
}

func (f *fakeEngine) Typeset(ctx context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	respond := f.respond
	jitter := f.jitter
	hang := f.hang
	f.mu.Unlock()

	if hang && req.Math != "" {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if jitter > 0 {
		select {
		case <-time.After(rand.N(jitter)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if respond != nil {
		return respond(req)
	}
	return fakeResult(req), nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns a copy of the requests received so far.
func (f *fakeEngine) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

// formulaCalls returns the requests carrying real math.
func (f *fakeEngine) formulaCalls() []Request {
	var out []Request
	for _, r := range f.Calls() {
		if r.Math != "" {
			out = append(out, r)
		}
	}
	return out
}

func fakeResult(req Request) *Result {
	res := &Result{Outputs: make(map[string]string)}
	if req.Math == "" {
		if req.CSS {
			res.CSS = "engine-css"
		}
		return res
	}
	src := html.EscapeString(req.Math)
	for _, kind := range req.Outputs {
		switch kind {
		case OutputMML:
			res.Outputs[kind] = "<math><mi>" + src + "</mi></math>"
		case OutputSVG:
			res.Outputs[kind] = `<svg class="fake"><title>` + src + `</title></svg>`
		case OutputHTML:
			res.Outputs[kind] = `<span class="fake-chtml">` + src + `</span>`
		default:
			res.Outputs[kind] = "payload:" + req.Math
		}
	}
	return res
}

// failOn returns a responder failing formulas whose source is in bad.
func failOn(bad ...string) func(Request) (*Result, error) {
	return func(req Request) (*Result, error) {
		for _, b := range bad {
			if req.Math == b {
				return &Result{Errors: []string{"TeX parse error: " + b}}, nil
			}
		}
		return fakeResult(req), nil
	}
}

// ---------------------------------------------------------------------------
// Logging capture
// ---------------------------------------------------------------------------

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestConverter builds a converter around eng with its own registry and
// a captured log.
func newTestConverter(t *testing.T, eng Engine, opts ...Option) (*Converter, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	base := []Option{
		WithEngine(eng),
		WithRegistry(NewRegistry()),
		WithLogger(log.New(logs, "", 0)),
	}
	conv := NewConverter(append(base, opts...)...)
	t.Cleanup(func() {
		if err := conv.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return conv, logs
}

// convert runs one page through conv and fails the test on error.
func convert(t *testing.T, conv *Converter, in Input) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := conv.Convert(ctx, in)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return out
}

// inlineTeX builds a page of n inline formulas f0..f(n-1).
func inlineTeX(n int) string {
	var b bytes.Buffer
	b.WriteString("<p>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<script type="math/inline-TeX">f%d</script> `, i)
	}
	b.WriteString("</p>")
	return b.String()
}
