package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page-level flags.
type pageFlags struct {
	format     string // comma-separated input formats
	outputKind string // SVG, CommonHTML, MML or a registered kind
	nodollars  bool
	fragment   bool
	noCSS      bool
	markdown   bool
}

// typesetFlags holds per-formula typesetting flags.
type typesetFlags struct {
	eqno           string
	ex             float64
	width          float64
	speech         bool
	speechRules    string
	speechStyle    string
	linebreaks     bool
	globalCache    bool
	formulaTimeout string
}

// engineFlags holds flags for the engine pool and the MathJax page.
type engineFlags struct {
	mathjaxURL  string
	extensions  string
	fontURL     string
	cache       string
	workers     int
	concurrency int
	timeout     string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common     commonFlags
	output     string
	page       pageFlags
	typeset    typesetFlags
	engine     engineFlags
	dumpConfig bool
	version    bool

	// changed records flags given on the command line, so zero values can
	// still override a config file.
	changed map[string]bool
}

// isSet reports whether the named flag was given explicitly.
func (f *convertFlags) isSet(name string) bool {
	return f.changed[name]
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
}

// addPageFlags adds page-level flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVar(&f.format, "format", "AsciiMath,TeX,MathML", "input format(s) to look for")
	fs.StringVar(&f.outputKind, "output-kind", "SVG", "output format: SVG, CommonHTML, MML")
	fs.BoolVar(&f.nodollars, "nodollars", false, "don't use single-dollar delimiters")
	fs.BoolVar(&f.fragment, "fragment", false, "output body content only")
	fs.BoolVar(&f.noCSS, "no-css", false, "don't inject the shared stylesheet")
	fs.BoolVar(&f.markdown, "markdown", false, "treat stdin as Markdown")
}

// addTypesetFlags adds typesetting flags to a FlagSet.
func addTypesetFlags(fs *flag.FlagSet, f *typesetFlags) {
	fs.StringVar(&f.eqno, "eqno", "none", "equation number style: none, AMS, all")
	fs.Float64Var(&f.ex, "ex", 6, "ex-size in pixels")
	fs.Float64Var(&f.width, "width", 100, "container width in ex (for line-breaking)")
	fs.BoolVar(&f.speech, "speech", false, "include speech text")
	fs.StringVar(&f.speechRules, "speechrules", "mathspeak", "speech ruleset: mathspeak, chromevox")
	fs.StringVar(&f.speechStyle, "speechstyle", "default", "speech style: default, brief, sbrief")
	fs.BoolVar(&f.linebreaks, "linebreaks", false, "perform automatic line-breaking")
	fs.BoolVar(&f.globalCache, "global-cache", false, "share SVG glyph paths across the page")
	fs.StringVar(&f.formulaTimeout, "formula-timeout", "", "per-formula timeout (e.g., 10s)")
}

// addEngineFlags adds engine flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.mathjaxURL, "mathjax-url", "", "MathJax 3 startup script URL")
	fs.StringVar(&f.extensions, "extensions", "", "extra TeX packages, e.g. 'mhchem,physics'")
	fs.StringVar(&f.fontURL, "fontURL", "", "URL for CommonHTML web fonts")
	fs.StringVar(&f.cache, "cache", "", "result cache: memory, memory:N, redis://host:port/db")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser engines (0 = auto)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "in-flight formulas per page (0 = default)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "whole-page timeout (e.g., 30s, 2m)")
}

// newConvertFlagSet registers every convert flag on a fresh FlagSet.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("mathpage", flag.ContinueOnError)

	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.BoolVar(&f.dumpConfig, "dump-config", false, "print the effective config as YAML and exit")
	fs.BoolVar(&f.version, "version", false, "show version information")

	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	addTypesetFlags(fs, &f.typeset)
	addEngineFlags(fs, &f.engine)

	return fs
}

// parseConvertFlags parses convert flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{changed: map[string]bool{}}
	fs := newConvertFlagSet(f)
	// runMain reports parse errors and prints usage itself.
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	fs.Visit(func(fl *flag.Flag) { f.changed[fl.Name] = true })
	return f, fs.Args(), nil
}
