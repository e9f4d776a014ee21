package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mathpage"
	"github.com/alnah/go-mathpage/internal/config"
	"github.com/alnah/go-mathpage/internal/fileutil"
	"github.com/alnah/go-mathpage/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrReadInput          = errors.New("failed to read input")
	ErrWriteOutput        = errors.New("failed to write output")
	ErrInvalidOutputKind  = errors.New("invalid output kind")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrCacheOpen          = errors.New("failed to open result cache")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// chromevoxRuleset is the legacy name of MathJax's default speech rules.
const chromevoxRuleset = "chromevox"

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Formulas   int
	Converted  int
	Err        error
	Duration   time.Duration
}

// runConvert orchestrates the conversion process: stdin to stdout when no
// files are given, otherwise every file concurrently over the engine pool.
func runConvert(ctx context.Context, files []string, flags *convertFlags, env *Environment) error {
	if err := validateWorkers(flags.engine.workers); err != nil {
		return err
	}

	envCfg := loadEnvConfig()
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)

	if err := mergeFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if flags.dumpConfig {
		data, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(data)
		return err
	}

	conv, err := newConverter(ctx, cfg, flags.common.quiet, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	if len(files) == 0 {
		return convertStream(ctx, conv, cfg, env)
	}

	targets := make([]FileToConvert, 0, len(files))
	for _, f := range files {
		targets = append(targets, FileToConvert{
			InputPath:  f,
			OutputPath: fileutil.OutputPath(f, cfg.Output.DefaultDir),
		})
	}

	limit := mathpage.ResolvePoolSize(cfg.Engine.Workers)
	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Pool size: %d\n", limit)
	}

	results := convertBatch(ctx, conv, targets, cfg, limit, env.Now)
	failed := printResultsWithWriter(results, flags.common.quiet, flags.common.verbose, env)
	if failed > 0 {
		return fmt.Errorf("%d conversion(s) failed", failed)
	}
	return nil
}

// loadConfig loads the named config, falling back to MATHPAGE_CONFIG.
// With neither set, every option keeps its default.
func loadConfig(name string, env *envConfig) (*config.Config, error) {
	if name == "" {
		name = env.ConfigPath
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. Explicit flags override config
// values; a few defaults of the command line differ from the library's and
// are applied when neither the flag nor the config sets them.
func mergeFlags(flags *convertFlags, cfg *config.Config) error {
	page := &cfg.Page
	ts := &cfg.Typeset

	// Page
	if flags.isSet("format") {
		page.Format = splitList(flags.page.format)
	}
	if flags.isSet("output-kind") {
		page.Output = flags.page.outputKind
	}
	if page.Output != "" {
		kind, err := outputKind(page.Output)
		if err != nil {
			return err
		}
		page.Output = kind
	}
	if flags.isSet("nodollars") || page.SingleDollars == nil {
		page.SingleDollars = mathpage.Bool(!flags.page.nodollars)
	}
	if flags.isSet("fragment") {
		page.Fragment = mathpage.Bool(flags.page.fragment)
	}
	if flags.isSet("no-css") {
		page.CSSInline = mathpage.Bool(!flags.page.noCSS)
	}
	if flags.isSet("markdown") {
		page.Markdown = mathpage.Bool(flags.page.markdown)
	}

	// Typeset
	if flags.isSet("eqno") {
		ts.EquationNumbers = flags.typeset.eqno
	}
	if flags.isSet("ex") {
		ts.Ex = mathpage.Float(flags.typeset.ex)
	}
	if flags.isSet("width") {
		ts.Width = mathpage.Float(flags.typeset.width)
	}
	if flags.isSet("speech") || ts.SpeakText == nil {
		ts.SpeakText = mathpage.Bool(flags.typeset.speech)
	}
	if flags.isSet("speechrules") {
		ts.SpeakRuleset = flags.typeset.speechRules
	}
	ts.SpeakRuleset = speechRuleset(ts.SpeakRuleset)
	if flags.isSet("speechstyle") {
		ts.SpeakStyle = flags.typeset.speechStyle
	}
	if flags.isSet("linebreaks") {
		ts.Linebreaks = mathpage.Bool(flags.typeset.linebreaks)
	}
	if flags.isSet("global-cache") {
		ts.UseGlobalCache = mathpage.Bool(flags.typeset.globalCache)
	}
	if flags.isSet("formula-timeout") {
		d, err := parseDuration("formula-timeout", flags.typeset.formulaTimeout)
		if err != nil {
			return err
		}
		ts.Timeout = mathpage.Duration(d)
	}

	// Engine
	if flags.isSet("mathjax-url") {
		cfg.Engine.MathJaxURL = flags.engine.mathjaxURL
	}
	if flags.isSet("extensions") {
		cfg.Engine.Extensions = splitList(flags.engine.extensions)
	}
	if flags.isSet("fontURL") {
		cfg.Engine.FontURL = flags.engine.fontURL
	}
	if flags.isSet("cache") {
		cfg.Engine.Cache = flags.engine.cache
	}
	if flags.isSet("workers") {
		cfg.Engine.Workers = flags.engine.workers
	}
	if flags.isSet("concurrency") {
		cfg.Engine.Concurrency = flags.engine.concurrency
	}
	if flags.isSet("timeout") {
		d, err := parseDuration("timeout", flags.engine.timeout)
		if err != nil {
			return err
		}
		cfg.Engine.Timeout = d
	}

	// Output
	if flags.isSet("output") {
		cfg.Output.DefaultDir = flags.output
	}

	return nil
}

// outputKind maps a command-line output name to a registered kind.
// CommonHTML is MathJax's name for the html kind.
func outputKind(name string) (string, error) {
	if strings.EqualFold(name, "CommonHTML") {
		return mathpage.OutputHTML, nil
	}
	if kind, ok := mathpage.DefaultRegistry().Lookup(name); ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q%s", ErrInvalidOutputKind, name,
		hints.ForOutputKind([]string{"SVG", "CommonHTML", "MML"}))
}

// speechRuleset maps the legacy "chromevox" name to "default".
func speechRuleset(name string) string {
	if strings.EqualFold(name, chromevoxRuleset) {
		return "default"
	}
	return name
}

// parseDuration parses a positive duration flag value.
func parseDuration(flagName, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s %q: %v", ErrInvalidDuration, flagName, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: --%s must be positive, got %v", ErrInvalidDuration, flagName, d)
	}
	return d, nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// newConverter builds a converter from the engine section of cfg.
func newConverter(ctx context.Context, cfg *config.Config, quiet bool, env *Environment) (*mathpage.Converter, error) {
	var logOut io.Writer = env.Stderr
	if quiet {
		logOut = nil
	}

	factory := env.NewEngine
	if factory == nil {
		factory = mathpage.MathJaxFactory(mathpage.MathJaxOptions{
			URL:        cfg.Engine.MathJaxURL,
			Extensions: cfg.Engine.Extensions,
			FontURL:    cfg.Engine.FontURL,
		})
	}

	opts := []mathpage.Option{
		mathpage.WithEngineFactory(factory),
		mathpage.WithPoolSize(cfg.Engine.Workers),
		mathpage.WithLogger(mathpage.NewLogger(logOut)),
	}
	if cfg.Engine.Concurrency > 0 {
		opts = append(opts, mathpage.WithConcurrency(cfg.Engine.Concurrency))
	}
	if cfg.Engine.Timeout > 0 {
		opts = append(opts, mathpage.WithTimeout(cfg.Engine.Timeout))
	}
	if cfg.Engine.Cache != "" {
		store, err := mathpage.OpenCache(ctx, cfg.Engine.Cache)
		if err != nil {
			return nil, fmt.Errorf("%w: %v%s", ErrCacheOpen, err, hints.ForCache(cfg.Engine.Cache))
		}
		opts = append(opts, mathpage.WithCache(store))
	}

	return mathpage.NewConverter(opts...), nil
}

// convertStream converts the page read from stdin and writes it to stdout.
func convertStream(ctx context.Context, conv *mathpage.Converter, cfg *config.Config, env *Environment) error {
	src, err := io.ReadAll(env.Stdin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	out, err := conv.Convert(ctx, mathpage.Input{
		HTML:    string(src),
		Page:    &cfg.Page,
		Typeset: &cfg.Typeset,
	})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(env.Stdout, out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

// convertBatch processes files concurrently, at most limit at a time.
// Results keep the order of files.
func convertBatch(ctx context.Context, conv *mathpage.Converter, files []FileToConvert, cfg *config.Config, limit int, now func() time.Time) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	results := make([]ConversionResult, len(files))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = ConversionResult{InputPath: f.InputPath, Err: ctx.Err()}
				return nil
			}
			results[i] = convertFile(ctx, conv, f, cfg, now)
			return nil
		})
	}
	_ = g.Wait() // convertFile reports through results

	return results
}

// convertFile processes a single file and returns the result.
// Markdown files are detected by extension.
func convertFile(ctx context.Context, conv *mathpage.Converter, f FileToConvert, cfg *config.Config, now func() time.Time) ConversionResult {
	start := now()
	result := ConversionResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	finish := func(err error) ConversionResult {
		result.Err = err
		result.Duration = now().Sub(start)
		return result
	}

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- user-provided path
	if err != nil {
		return finish(fmt.Errorf("%w: %w", ErrReadInput, err))
	}

	page := cfg.Page
	if fileutil.IsMarkdown(f.InputPath) {
		page.Markdown = mathpage.Bool(true)
	}

	var out string
	job := conv.Submit(ctx, mathpage.Input{
		HTML:    string(content),
		Page:    &page,
		Typeset: &cfg.Typeset,
	}, func(o string, e error) {
		out, err = o, e
	})
	<-job.Done()
	result.Formulas = job.Formulas()
	result.Converted = job.Converted()
	if err != nil {
		return finish(err)
	}

	if err := os.MkdirAll(filepath.Dir(f.OutputPath), dirPermissions); err != nil {
		return finish(fmt.Errorf("%w: creating output directory: %w%s", ErrWriteOutput, err, hints.ForOutputDirectory()))
	}
	// #nosec G306 -- converted pages are meant to be readable
	if err := os.WriteFile(f.OutputPath, []byte(out), filePermissions); err != nil {
		return finish(fmt.Errorf("%w: %w", ErrWriteOutput, err))
	}

	return finish(nil)
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResultsWithWriter outputs conversion results using the provided writers.
// Returns the number of failed files.
func printResultsWithWriter(results []ConversionResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if r.Converted < r.Formulas {
			fmt.Fprintf(env.Stderr, "warning: %s: %d of %d formulas failed\n", r.InputPath, r.Formulas-r.Converted, r.Formulas)
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d formulas, %v)\n", r.InputPath, r.OutputPath, r.Formulas, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

// errorHint returns an actionable hint for err, or "".
func errorHint(err error, mathjaxURL string) string {
	switch {
	case errors.Is(err, mathpage.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, mathpage.ErrMathJaxLoad):
		return hints.ForMathJaxLoad(mathjaxURL)
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(configSearchPaths())
	}
	return ""
}

// configSearchPaths lists the user config directory candidates, for hints.
func configSearchPaths() []string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(dir, "go-mathpage", "default.yaml")}
}
