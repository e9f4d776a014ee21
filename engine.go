package mathpage

import (
	"context"
	"time"
)

// Format is the declared source format of a formula marker.
type Format string

// Source formats recognized on marker elements.
const (
	FormatTeX         Format = "TeX"
	FormatInlineTeX   Format = "inline-TeX"
	FormatAsciiMath   Format = "AsciiMath"
	FormatMathML      Format = "MathML"
	FormatMathMLBlock Format = "MathML-block"
)

// markerTypePrefix precedes the format in a marker's type attribute.
const markerTypePrefix = "math/"

// MarkerType returns the script type attribute used for f (e.g. "math/TeX").
func (f Format) MarkerType() string {
	return markerTypePrefix + string(f)
}

// IsBlock reports whether formulas in this format render as display blocks.
func (f Format) IsBlock() bool {
	return f == FormatTeX || f == FormatMathMLBlock
}

// EngineFormat normalizes the block MathML variant to plain MathML.
// The engine knows nothing about the block label.
func (f Format) EngineFormat() Format {
	if f == FormatMathMLBlock {
		return FormatMathML
	}
	return f
}

// markerFormats lists the formats the dispatcher looks for, in query order.
var markerFormats = []Format{
	FormatTeX,
	FormatInlineTeX,
	FormatAsciiMath,
	FormatMathML,
	FormatMathMLBlock,
}

// Built-in output kinds.
const (
	OutputMML  = "mml"
	OutputHTML = "html"
	OutputSVG  = "svg"

	// OutputPNG is not built in. It is recognized only to decide whether
	// raster conversion is layered on top of SVG output.
	OutputPNG = "png"
)

// Request is the immutable per-call snapshot handed to an Engine.
// It is built fresh for every submission and never shared between calls.
type Request struct {
	Math            string        `json:"math"`
	Format          Format        `json:"format"`
	Outputs         []string      `json:"outputs"`
	CSS             bool          `json:"css"`
	Ex              float64       `json:"ex"`
	Width           float64       `json:"width"`
	Linebreaks      bool          `json:"linebreaks"`
	UseFontCache    bool          `json:"useFontCache"`
	UseGlobalCache  bool          `json:"useGlobalCache"`
	EquationNumbers string        `json:"equationNumbers"`
	SpeakText       bool          `json:"speakText"`
	SpeakRuleset    string        `json:"speakRuleset"`
	SpeakStyle      string        `json:"speakStyle"`
	Timeout         time.Duration `json:"timeout"`
}

// Result is what an Engine returns for one Request.
// A non-empty Errors list marks a per-formula failure.
type Result struct {
	Outputs map[string]string `json:"outputs,omitempty"`
	CSS     string            `json:"css,omitempty"`
	Defs    string            `json:"defs,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

// Output returns the payload for an output kind, or "" if absent.
func (r *Result) Output(kind string) string {
	if r == nil || r.Outputs == nil {
		return ""
	}
	return r.Outputs[kind]
}

// Failed reports whether the engine flagged the formula as erroneous.
func (r *Result) Failed() bool {
	return r != nil && len(r.Errors) > 0
}

// Engine converts a single formula.
// Implementations must be safe for concurrent Typeset calls; they may
// serialize them internally.
type Engine interface {
	Typeset(ctx context.Context, req Request) (*Result, error)
	Close() error
}

// EngineFactory creates engines on demand for an EnginePool.
type EngineFactory func() (Engine, error)

// newRequest builds the per-call snapshot for one formula.
func newRequest(ts TypesetConfig, kinds []string, math string, format Format) Request {
	outputs := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if ts.Outputs[k] {
			outputs = append(outputs, k)
		}
	}
	return Request{
		Math:            math,
		Format:          format.EngineFormat(),
		Outputs:         outputs,
		CSS:             ts.CSS,
		Ex:              ts.Ex,
		Width:           ts.Width,
		Linebreaks:      ts.Linebreaks,
		UseFontCache:    ts.UseFontCache,
		UseGlobalCache:  ts.UseGlobalCache,
		EquationNumbers: ts.EquationNumbers,
		SpeakText:       ts.SpeakText,
		SpeakRuleset:    ts.SpeakRuleset,
		SpeakStyle:      ts.SpeakStyle,
		Timeout:         ts.Timeout,
	}
}
