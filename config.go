package mathpage

import (
	"strings"
	"time"
)

// Default values for page-level configuration.
var defaultFormats = []string{"MathML", "TeX", "AsciiMath"}

// Default values for typesetting configuration.
const (
	DefaultEx              = 6.0
	DefaultWidth           = 100.0
	DefaultEquationNumbers = "none"
	DefaultSpeakRuleset    = "mathspeak"
	DefaultSpeakStyle      = "default"
	DefaultTypesetTimeout  = 10 * time.Second
)

// Equation numbering modes.
const (
	EquationNumbersNone = "none"
	EquationNumbersAMS  = "AMS"
	EquationNumbersAll  = "all"
)

// Delimiter is an opening/closing pair recognized by the formula extractor.
type Delimiter struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// TeXOptions configures the TeX preprocessor.
type TeXOptions struct {
	InlineMath     []Delimiter `yaml:"inlineMath"`
	DisplayMath    []Delimiter `yaml:"displayMath"`
	ProcessEscapes *bool       `yaml:"processEscapes"`

	// ProcessEnvironments treats \begin{name}...\end{name} in text as
	// display TeX. Defaults to true.
	ProcessEnvironments *bool `yaml:"processEnvironments"`
}

// AsciiMathOptions configures the AsciiMath preprocessor.
type AsciiMathOptions struct {
	Delimiters []Delimiter `yaml:"delimiters"`
}

// PageOptions holds caller-supplied page-level options.
// Nil pointers and empty values mean "use the default".
type PageOptions struct {
	Format        []string          `yaml:"format"`        // input formats to look for
	SingleDollars *bool             `yaml:"singleDollars"` // allow $...$ for inline TeX
	Output        string            `yaml:"output"`        // "svg", "html", "mml" or a registered kind
	Fragment      *bool             `yaml:"fragment"`      // return body inner markup only
	CSSInline     *bool             `yaml:"cssInline"`     // inject the shared stylesheet into <head>
	Markdown      *bool             `yaml:"markdown"`      // input is Markdown, not HTML
	TeX           *TeXOptions       `yaml:"tex"`
	AsciiMath     *AsciiMathOptions `yaml:"ascii"`

	// Sandboxing flags for the DOM provider. The parser never fetches or
	// executes anything; enabling them only produces a warning.
	FetchExternalResources   *bool `yaml:"fetchExternalResources"`
	ProcessExternalResources *bool `yaml:"processExternalResources"`
}

// TypesetOptions holds caller-supplied typesetting options.
type TypesetOptions struct {
	Ex              *float64        `yaml:"ex"`
	Width           *float64        `yaml:"width"`
	Outputs         map[string]bool `yaml:"outputs"`
	CSS             *bool           `yaml:"css"`
	UseFontCache    *bool           `yaml:"useFontCache"`
	UseGlobalCache  *bool           `yaml:"useGlobalCache"`
	Linebreaks      *bool           `yaml:"linebreaks"`
	EquationNumbers string          `yaml:"equationNumbers"`
	SpeakText       *bool           `yaml:"speakText"`
	SpeakRuleset    string          `yaml:"speakRuleset"`
	SpeakStyle      string          `yaml:"speakStyle"`
	Timeout         *time.Duration  `yaml:"timeout"`
}

// TeXConfig is the resolved TeX preprocessor configuration.
type TeXConfig struct {
	InlineMath          []Delimiter
	DisplayMath         []Delimiter
	ProcessEscapes      bool
	ProcessEnvironments bool
}

// AsciiMathConfig is the resolved AsciiMath preprocessor configuration.
type AsciiMathConfig struct {
	Delimiters []Delimiter
}

// PageConfig is the resolved page-level configuration.
type PageConfig struct {
	Format                   []string
	SingleDollars            bool
	Output                   string
	Fragment                 bool
	CSSInline                bool
	Markdown                 bool
	TeX                      TeXConfig
	AsciiMath                AsciiMathConfig
	FetchExternalResources   bool
	ProcessExternalResources bool
}

// HasFormat reports whether the named input format is enabled.
func (p PageConfig) HasFormat(name string) bool {
	for _, f := range p.Format {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// TypesetConfig is the resolved typesetting configuration.
type TypesetConfig struct {
	Ex              float64
	Width           float64
	Outputs         map[string]bool
	CSS             bool
	UseFontCache    bool
	UseGlobalCache  bool
	Linebreaks      bool
	EquationNumbers string
	SpeakText       bool
	SpeakRuleset    string
	SpeakStyle      string
	Timeout         time.Duration
}

// OutputKind returns the effective output kind: the last kind, in registry
// order, whose flag is set. Returns "" when none is set.
func (t TypesetConfig) OutputKind(reg *Registry) string {
	var kind string
	for _, k := range reg.Kinds() {
		if t.Outputs[k] {
			kind = k
		}
	}
	return kind
}

// DefaultPageConfig returns the page-level default tree.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Format:    append([]string(nil), defaultFormats...),
		CSSInline: true,
		TeX: TeXConfig{
			InlineMath:  []Delimiter{{Open: `\(`, Close: `\)`}},
			DisplayMath: []Delimiter{{Open: "$$", Close: "$$"}, {Open: `\[`, Close: `\]`}},

			ProcessEnvironments: true,
		},
		AsciiMath: AsciiMathConfig{
			Delimiters: []Delimiter{{Open: "`", Close: "`"}},
		},
	}
}

// DefaultTypesetConfig returns the typesetting default tree.
func DefaultTypesetConfig() TypesetConfig {
	return TypesetConfig{
		Ex:              DefaultEx,
		Width:           DefaultWidth,
		Outputs:         map[string]bool{},
		UseFontCache:    true,
		EquationNumbers: DefaultEquationNumbers,
		SpeakText:       true,
		SpeakRuleset:    DefaultSpeakRuleset,
		SpeakStyle:      DefaultSpeakStyle,
		Timeout:         DefaultTypesetTimeout,
	}
}

// Resolve merges caller options over the default trees and derives the
// effective output flags. It never fails and never mutates its arguments.
// A nil registry means the process-wide one.
func Resolve(page *PageOptions, ts *TypesetOptions, reg *Registry) (PageConfig, TypesetConfig) {
	if reg == nil {
		reg = defaultRegistry
	}

	pc := resolvePage(page)
	tc := resolveTypeset(ts)

	// A single page-level output kind overrides the per-kind flags.
	if kind, ok := reg.Lookup(pc.Output); ok && pc.Output != "" {
		pc.Output = kind
		for _, k := range reg.Kinds() {
			tc.Outputs[k] = k == kind
		}
	}

	if tc.OutputKind(reg) == "" {
		tc.Outputs[OutputSVG] = true
	}

	if pc.CSSInline && (tc.Outputs[OutputSVG] || tc.Outputs[OutputHTML]) {
		tc.CSS = true
	}

	return pc, tc
}

func resolvePage(o *PageOptions) PageConfig {
	pc := DefaultPageConfig()
	if o == nil {
		return pc
	}

	if formats := nonEmpty(o.Format); len(formats) > 0 {
		pc.Format = formats
	}
	pc.SingleDollars = boolOr(o.SingleDollars, pc.SingleDollars)
	pc.Output = strings.TrimSpace(o.Output)
	pc.Fragment = boolOr(o.Fragment, pc.Fragment)
	pc.CSSInline = boolOr(o.CSSInline, pc.CSSInline)
	pc.Markdown = boolOr(o.Markdown, pc.Markdown)
	pc.FetchExternalResources = boolOr(o.FetchExternalResources, false)
	pc.ProcessExternalResources = boolOr(o.ProcessExternalResources, false)

	if o.TeX != nil {
		if d := validDelimiters(o.TeX.InlineMath); len(d) > 0 {
			pc.TeX.InlineMath = d
		}
		if d := validDelimiters(o.TeX.DisplayMath); len(d) > 0 {
			pc.TeX.DisplayMath = d
		}
		pc.TeX.ProcessEscapes = boolOr(o.TeX.ProcessEscapes, pc.TeX.ProcessEscapes)
		pc.TeX.ProcessEnvironments = boolOr(o.TeX.ProcessEnvironments, pc.TeX.ProcessEnvironments)
	}
	if o.AsciiMath != nil {
		if d := validDelimiters(o.AsciiMath.Delimiters); len(d) > 0 {
			pc.AsciiMath.Delimiters = d
		}
	}

	// Single dollars add an inline delimiter and turn on \$ escapes.
	if pc.SingleDollars {
		pc.TeX.InlineMath = append(append([]Delimiter(nil), pc.TeX.InlineMath...), Delimiter{Open: "$", Close: "$"})
		pc.TeX.ProcessEscapes = true
	}

	return pc
}

func resolveTypeset(o *TypesetOptions) TypesetConfig {
	tc := DefaultTypesetConfig()
	if o == nil {
		return tc
	}

	if o.Ex != nil && *o.Ex > 0 {
		tc.Ex = *o.Ex
	}
	if o.Width != nil && *o.Width > 0 {
		tc.Width = *o.Width
	}
	for k, v := range o.Outputs {
		if k = strings.TrimSpace(k); k != "" {
			tc.Outputs[k] = v
		}
	}
	tc.CSS = boolOr(o.CSS, tc.CSS)
	tc.UseFontCache = boolOr(o.UseFontCache, tc.UseFontCache)
	tc.UseGlobalCache = boolOr(o.UseGlobalCache, tc.UseGlobalCache)
	tc.Linebreaks = boolOr(o.Linebreaks, tc.Linebreaks)
	tc.SpeakText = boolOr(o.SpeakText, tc.SpeakText)

	switch {
	case strings.EqualFold(o.EquationNumbers, EquationNumbersNone):
		tc.EquationNumbers = EquationNumbersNone
	case strings.EqualFold(o.EquationNumbers, EquationNumbersAMS):
		tc.EquationNumbers = EquationNumbersAMS
	case strings.EqualFold(o.EquationNumbers, EquationNumbersAll):
		tc.EquationNumbers = EquationNumbersAll
	}
	if o.SpeakRuleset != "" {
		tc.SpeakRuleset = o.SpeakRuleset
	}
	if o.SpeakStyle != "" {
		tc.SpeakStyle = o.SpeakStyle
	}
	if o.Timeout != nil && *o.Timeout > 0 {
		tc.Timeout = *o.Timeout
	}

	return tc
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func validDelimiters(ds []Delimiter) []Delimiter {
	var out []Delimiter
	for _, d := range ds {
		if d.Open != "" && d.Close != "" {
			out = append(out, d)
		}
	}
	return out
}

// Bool returns a pointer to v, for filling option structs.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for filling option structs.
func Float(v float64) *float64 { return &v }

// Duration returns a pointer to v, for filling option structs.
func Duration(v time.Duration) *time.Duration { return &v }
