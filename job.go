package mathpage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"github.com/alnah/go-mathpage/internal/dom"
	"github.com/alnah/go-mathpage/internal/extract"
	"github.com/alnah/go-mathpage/internal/glyphs"
)

// Wrapper classes written around converted formulas.
const (
	WrapperClass      = "mathpage"
	BlockWrapperClass = "mathpage__block"
)

// Callback receives a job's output. It is called exactly once per job.
type Callback func(output string, err error)

// Hooks observe or intercept a job. All hooks run on the job's goroutine,
// one at a time, so they may touch the document freely.
type Hooks struct {
	// BeforeConversion runs per formula before its engine call is issued.
	// task.Node is still the marker element.
	BeforeConversion func(task *FormulaTask)

	// AfterConversion runs per successfully converted formula, after its
	// wrapper was filled.
	AfterConversion func(task *FormulaTask)

	// BeforeSerialization runs once with the final document and the
	// stylesheet that was (or would have been) inlined.
	BeforeSerialization func(doc *html.Node, css string)
}

// FormulaTask is one formula discovered on a page.
type FormulaTask struct {
	ID            int        // document-order index within the page
	JobID         string     // owning job
	Node          *html.Node // marker, then the wrapper that replaced it
	SourceFormula string
	SourceFormat  Format  // as declared by the marker; keeps MathML-block
	OutputFormula *Result // set on success only
	OutputFormat  string  // output kind the payload is taken from
}

// completion carries one engine call's outcome back to the job goroutine.
type completion struct {
	task *FormulaTask
	res  *Result
	err  error
}

// Job is one page conversion. Create jobs with Converter.Submit.
type Job struct {
	ID  string
	Seq uint64

	input   string
	page    PageConfig
	typeset TypesetConfig
	hooks   Hooks

	conv     *Converter
	registry *Registry
	kinds    []string
	logger   *log.Logger

	// Per-run state, owned by the job goroutine and cleared when it ends.
	tasks       []*FormulaTask
	completed   []*FormulaTask
	pending     int
	completions chan completion
	glyphs      *glyphs.Cache
	engine      Engine
	leased      Engine

	formulas  int
	converted int

	callback Callback
	once     sync.Once
	done     chan struct{}
}

func newJob(c *Converter, seq uint64, in Input, cb Callback) *Job {
	registry := c.registry
	pc, tc := Resolve(in.Page, in.Typeset, registry)

	return &Job{
		ID:       uuid.NewString(),
		Seq:      seq,
		input:    in.HTML,
		page:     pc,
		typeset:  tc,
		hooks:    in.Hooks,
		conv:     c,
		registry: registry,
		kinds:    registry.Kinds(),
		logger:   c.logger,
		callback: cb,
		done:     make(chan struct{}),
	}
}

// Done is closed after the job's callback returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Formulas returns how many formulas the page held. Valid after Done.
func (j *Job) Formulas() int {
	<-j.done
	return j.formulas
}

// Converted returns how many formulas were converted successfully.
// Valid after Done.
func (j *Job) Converted() int {
	<-j.done
	return j.converted
}

// PageConfig returns the resolved page configuration.
func (j *Job) PageConfig() PageConfig { return j.page }

// TypesetConfig returns the resolved typesetting configuration.
func (j *Job) TypesetConfig() TypesetConfig { return j.typeset }

func (j *Job) logf(format string, args ...any) {
	j.logger.Printf("[job %d] "+format, append([]any{j.Seq}, args...)...)
}

// deliver fires the callback once and closes Done.
func (j *Job) deliver(out string, err error) {
	j.once.Do(func() {
		defer close(j.done)
		if j.callback != nil {
			j.callback(out, err)
		}
	})
}

// run drives the job from parsing to delivery.
func (j *Job) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.release()
			j.clear()
			j.deliver("", fmt.Errorf("internal error: %v", r))
		}
	}()

	out, err := j.execute(ctx)
	j.release()
	j.clear()
	j.deliver(out, err)
}

func (j *Job) execute(ctx context.Context) (string, error) {
	doc, err := j.prepare(ctx)
	if err != nil {
		return "", err
	}

	engine, err := j.conv.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	j.leased = engine
	j.engine = engine
	if j.conv.cfg.cache != nil {
		j.engine = newCachingEngine(engine, j.conv.cfg.cache, j.logger)
	}

	j.dispatch(ctx, doc)
	j.collect()

	// Formulas already settled; a dead context still fails the job.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return j.finish(ctx, doc)
}

// prepare renders Markdown if needed, parses the page and runs the
// extractor so every formula is a marker.
func (j *Job) prepare(ctx context.Context) (*html.Node, error) {
	if j.page.FetchExternalResources || j.page.ProcessExternalResources {
		j.logf("external resources are never fetched or executed; sandbox flags ignored")
	}

	content := j.input
	tex := toExtractTeX(j.page.TeX)
	if j.page.Markdown {
		rendered, err := j.conv.markdown.ToHTML(ctx, content, tex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMarkdown, err)
		}
		content = rendered
	}

	doc, err := dom.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseHTML, err)
	}

	err = extract.Run(doc, extract.Config{
		MathML:          j.page.HasFormat(string(FormatMathML)),
		TeX:             j.page.HasFormat(string(FormatTeX)),
		AsciiMath:       j.page.HasFormat(string(FormatAsciiMath)),
		TeXConfig:       tex,
		AsciiDelimiters: toExtractDelimiters(j.page.AsciiMath.Delimiters),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseHTML, err)
	}
	return doc, nil
}

// markerFormat returns the format declared by a marker, if n is one.
func markerFormat(n *html.Node) (Format, bool) {
	if !dom.IsElement(n, "script") {
		return "", false
	}
	typ, ok := dom.Attr(n, "type")
	if !ok {
		return "", false
	}
	for _, f := range markerFormats {
		if typ == f.MarkerType() {
			return f, true
		}
	}
	return "", false
}

// dispatch replaces every marker with a wrapper and fans the engine calls
// out. It never waits on an engine call.
func (j *Job) dispatch(ctx context.Context, doc *html.Node) {
	markers := dom.FindAll(doc, func(n *html.Node) bool {
		_, ok := markerFormat(n)
		return ok
	})

	j.formulas = len(markers)
	j.completions = make(chan completion, len(markers))
	if j.typeset.UseGlobalCache {
		j.glyphs = glyphs.New()
	}
	sem := semaphore.NewWeighted(int64(j.conv.cfg.concurrency))

	for i, marker := range markers {
		format, _ := markerFormat(marker)
		task := &FormulaTask{
			ID:            i,
			JobID:         j.ID,
			Node:          marker,
			SourceFormula: dom.TextContent(marker),
			SourceFormat:  format,
			OutputFormat:  j.typeset.OutputKind(j.registry),
		}
		j.tasks = append(j.tasks, task)

		req := newRequest(j.typeset, j.kinds, task.SourceFormula, format)

		if j.hooks.BeforeConversion != nil {
			j.hooks.BeforeConversion(task)
		}

		wrapper := newWrapper(format)
		dom.Replace(marker, wrapper)
		task.Node = wrapper

		j.pending++
		go call(ctx, sem, j.engine, task, req, j.completions)
	}
}

// call runs one engine call and reports its outcome on out, which is
// buffered for every formula of the page.
func call(ctx context.Context, sem *semaphore.Weighted, engine Engine, task *FormulaTask, req Request, out chan<- completion) {
	if err := sem.Acquire(ctx, 1); err != nil {
		out <- completion{task: task, err: err}
		return
	}
	defer sem.Release(1)

	res, err := engine.Typeset(ctx, req)
	out <- completion{task: task, res: res, err: err}
}

// collect integrates completions until none are pending.
func (j *Job) collect() {
	for j.pending > 0 {
		j.integrate(<-j.completions)
	}
}

// integrate applies one completion. Failures leave the wrapper empty.
func (j *Job) integrate(c completion) {
	defer func() { j.pending-- }()

	task := c.task
	switch {
	case task == nil:
		j.logf("[status=warning] completion without a task")
		return
	case c.err != nil:
		j.logf("formula %d (%s) %q: %v", task.ID, task.SourceFormat, task.SourceFormula, c.err)
		return
	case c.res == nil:
		j.logf("[status=warning] formula %d: engine returned neither result nor error", task.ID)
		return
	case c.res.Failed():
		j.logf("formula %d (%s) %q: %s", task.ID, task.SourceFormat, task.SourceFormula, strings.Join(c.res.Errors, "; "))
		return
	}

	kind := j.typeset.OutputKind(j.registry)
	payload := c.res.Output(kind)

	if j.glyphs != nil && kind == OutputSVG {
		if hoisted, err := j.glyphs.Hoist(payload); err != nil {
			j.logf("formula %d: keeping glyph defs inline: %v", task.ID, err)
		} else {
			payload = hoisted
		}
		if err := j.glyphs.Add(c.res.Defs); err != nil {
			j.logf("formula %d: %v", task.ID, err)
		}
	}

	var err error
	if handler, ok := j.registry.Handler(kind); ok {
		err = handler(task.Node, payload)
	} else {
		err = dom.SetInnerHTML(task.Node, payload)
	}
	if err != nil {
		j.logf("formula %d: inserting %s output: %v", task.ID, kind, err)
		return
	}

	task.OutputFormula = c.res
	j.completed = append(j.completed, task)
	j.converted++

	if j.hooks.AfterConversion != nil {
		j.hooks.AfterConversion(task)
	}
}

// release returns the engine lease. Safe to call twice.
func (j *Job) release() {
	if j.leased != nil {
		j.conv.pool.Release(j.leased)
		j.leased = nil
	}
	j.engine = nil
}

// clear drops per-run state so the document can be collected.
func (j *Job) clear() {
	j.tasks = nil
	j.completed = nil
	j.completions = nil
	if j.glyphs != nil {
		j.glyphs.Reset()
		j.glyphs = nil
	}
}

func newWrapper(f Format) *html.Node {
	class := WrapperClass
	if f.IsBlock() {
		class += " " + BlockWrapperClass
	}
	return dom.NewElement("span", html.Attribute{Key: "class", Val: class})
}

func toExtractTeX(t TeXConfig) extract.TeXConfig {
	return extract.TeXConfig{
		InlineMath:          toExtractDelimiters(t.InlineMath),
		DisplayMath:         toExtractDelimiters(t.DisplayMath),
		ProcessEscapes:      t.ProcessEscapes,
		ProcessEnvironments: t.ProcessEnvironments,
	}
}

func toExtractDelimiters(ds []Delimiter) []extract.Delimiter {
	out := make([]extract.Delimiter, len(ds))
	for i, d := range ds {
		out[i] = extract.Delimiter(d)
	}
	return out
}
