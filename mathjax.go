package mathpage

import (
	"context"
	"time"

	"github.com/alnah/go-mathpage/internal/mathjax"
)

// MathJaxOptions configures the built-in MathJax engine.
type MathJaxOptions struct {
	URL         string        // MathJax 3 startup script; defaults to the jsDelivr CDN
	Extensions  []string      // extra TeX packages, e.g. "mhchem"
	FontURL     string        // web font location for CommonHTML output
	Timeout     time.Duration // per-call default when a request sets none
	LoadTimeout time.Duration
	BrowserBin  string // Chrome binary; falls back to ROD_BROWSER_BIN
}

// DefaultMathJaxURL is the MathJax script loaded when none is configured.
const DefaultMathJaxURL = mathjax.DefaultURL

// NewMathJaxEngine returns an Engine running MathJax 3 in headless Chrome.
// The browser starts on the first Typeset call.
func NewMathJaxEngine(opts MathJaxOptions) Engine {
	return &mathjaxEngine{e: mathjax.New(toMathJaxOptions(opts))}
}

// MathJaxFactory returns a factory creating MathJax engines with opts.
func MathJaxFactory(opts MathJaxOptions) EngineFactory {
	return func() (Engine, error) {
		return NewMathJaxEngine(opts), nil
	}
}

var _ Engine = (*mathjaxEngine)(nil)

// mathjaxEngine adapts the internal engine to the public contract.
type mathjaxEngine struct {
	e *mathjax.Engine
}

func (m *mathjaxEngine) Typeset(ctx context.Context, req Request) (*Result, error) {
	res, err := m.e.Typeset(ctx, toMathJaxRequest(req))
	if err != nil {
		return nil, err
	}
	return &Result{
		Outputs: res.Outputs,
		CSS:     res.CSS,
		Defs:    res.Defs,
		Errors:  res.Errors,
	}, nil
}

func (m *mathjaxEngine) Close() error {
	return m.e.Close()
}

func toMathJaxOptions(o MathJaxOptions) mathjax.Options {
	return mathjax.Options{
		URL:         o.URL,
		Extensions:  o.Extensions,
		FontURL:     o.FontURL,
		Timeout:     o.Timeout,
		LoadTimeout: o.LoadTimeout,
		BrowserBin:  o.BrowserBin,
	}
}

func toMathJaxRequest(r Request) mathjax.Request {
	return mathjax.Request{
		Math:            r.Math,
		Format:          string(r.Format),
		Outputs:         r.Outputs,
		CSS:             r.CSS,
		Ex:              r.Ex,
		Width:           r.Width,
		Linebreaks:      r.Linebreaks,
		UseFontCache:    r.UseFontCache,
		UseGlobalCache:  r.UseGlobalCache,
		EquationNumbers: r.EquationNumbers,
		SpeakText:       r.SpeakText,
		SpeakRuleset:    r.SpeakRuleset,
		SpeakStyle:      r.SpeakStyle,
		Timeout:         r.Timeout,
	}
}
