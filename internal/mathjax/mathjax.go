// Package mathjax typesets formulas with MathJax 3 running in headless Chrome.
//
// One Engine owns one browser and one bootstrap page. Calls are serialized on
// that page; run several engines for parallelism. The page is reloaded when
// a request needs a different startup configuration (equation numbering or
// font cache mode) or after a call timed out.
package mathjax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-mathpage/internal/fileutil"
	"github.com/alnah/go-mathpage/internal/process"
)

// Sentinel errors.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrLoad           = errors.New("failed to load MathJax")
	ErrTypeset        = errors.New("typesetting failed")
	ErrClosed         = errors.New("engine is closed")
)

// DefaultURL is the MathJax 3 startup component.
const DefaultURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/startup.js"

// Default timeouts.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultLoadTimeout = 30 * time.Second
)

// Options configures an Engine.
type Options struct {
	URL         string        // MathJax startup script
	Extensions  []string      // extra TeX packages, e.g. "mhchem"
	FontURL     string        // web font location for CommonHTML output
	Timeout     time.Duration // per-call default
	LoadTimeout time.Duration // bootstrap page load
	BrowserBin  string        // Chrome binary; falls back to ROD_BROWSER_BIN
}

// Request is one formula to typeset.
type Request struct {
	Math            string   `json:"math"`
	Format          string   `json:"format"` // TeX, inline-TeX, AsciiMath, MathML
	Outputs         []string `json:"outputs"`
	CSS             bool     `json:"css"`
	Ex              float64  `json:"ex"`
	Width           float64  `json:"width"`
	Linebreaks      bool     `json:"linebreaks"`
	UseFontCache    bool     `json:"useFontCache"`
	UseGlobalCache  bool     `json:"useGlobalCache"`
	EquationNumbers string   `json:"equationNumbers"`
	SpeakText       bool     `json:"speakText"`
	SpeakRuleset    string   `json:"speakRuleset"`
	SpeakStyle      string   `json:"speakStyle"`

	Timeout time.Duration `json:"-"`
}

// Result is what the page returns for one Request.
type Result struct {
	Outputs map[string]string `json:"outputs"`
	CSS     string            `json:"css"`
	Defs    string            `json:"defs"`
	Errors  []string          `json:"errors"`
}

// pageConfig is the part of a request that is fixed at MathJax startup.
type pageConfig struct {
	EquationNumbers string
	FontCache       string
	Speech          bool // load the speech rule engine
}

func configFor(req Request) pageConfig {
	cache := "none"
	switch {
	case req.UseGlobalCache:
		cache = "global"
	case req.UseFontCache:
		cache = "local"
	}
	tags := "none"
	switch req.EquationNumbers {
	case "AMS":
		tags = "ams"
	case "all":
		tags = "all"
	}
	return pageConfig{EquationNumbers: tags, FontCache: cache, Speech: req.SpeakText}
}

// Engine is a MathJax instance in headless Chrome.
// Rod downloads Chromium on first use if none is found.
type Engine struct {
	opts Options

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	current  pageConfig
	cleanup  func()
	closed   bool
}

// New creates an Engine. The browser is launched on the first call.
func New(opts Options) *Engine {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	return &Engine{opts: opts}
}

// Typeset converts one formula. Malformed input is reported in
// Result.Errors; the returned error covers browser and page failures.
func (e *Engine) Typeset(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if err := e.ensureBrowser(); err != nil {
		return nil, err
	}
	if err := e.ensurePage(ctx, configFor(req)); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.opts.Timeout
	}

	obj, err := e.page.Context(ctx).Timeout(timeout).Eval(typesetJS, req)
	if err != nil {
		// A stalled MathJax is restarted on the next call.
		e.closePage()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrTypeset, err)
	}

	var res Result
	if err := json.Unmarshal([]byte(obj.Value.JSON("", "")), &res); err != nil {
		return nil, fmt.Errorf("%w: decoding result: %v", ErrTypeset, err)
	}
	return &res, nil
}

// ensureBrowser lazily connects to the browser.
func (e *Engine) ensureBrowser() error {
	if e.browser != nil {
		return nil
	}

	l := launcher.New()

	bin := e.opts.BrowserBin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || bin != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.launcher = l
	e.browser = rod.New().ControlURL(u)
	if err := e.browser.Connect(); err != nil {
		e.browser = nil
		e.killBrowser()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// killBrowser ends the launched Chrome and its helper processes, which can
// outlive the DevTools connection.
func (e *Engine) killBrowser() {
	if e.launcher == nil {
		return
	}
	if pid := e.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	e.launcher.Kill()
	e.launcher = nil
}

// ensurePage loads the bootstrap page for cfg unless it is already current.
func (e *Engine) ensurePage(ctx context.Context, cfg pageConfig) error {
	if e.page != nil && e.current == cfg {
		return nil
	}
	e.closePage()

	content, err := bootstrapHTML(e.opts, cfg)
	if err != nil {
		return err
	}
	path, cleanup, err := fileutil.WriteTempFile(content, "html")
	if err != nil {
		return err
	}

	page, err := e.browser.Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	loading := page.Context(ctx).Timeout(e.opts.LoadTimeout)
	if err := loading.WaitLoad(); err != nil {
		_ = page.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if _, err := loading.Eval(readyJS); err != nil {
		_ = page.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	e.page = page
	e.current = cfg
	e.cleanup = cleanup
	return nil
}

func (e *Engine) closePage() {
	if e.page != nil {
		_ = e.page.Close()
		e.page = nil
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// Close releases browser resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.closePage()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	e.killBrowser()
	return err
}
