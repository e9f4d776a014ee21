// Package mathpage converts the math embedded in HTML pages (TeX, AsciiMath,
// MathML) to SVG, CommonHTML or MathML, producing a self-contained page.
//
// # Quick Start
//
// Create a converter, convert a page, and close when done:
//
//	conv := mathpage.NewConverter()
//	defer conv.Close()
//
//	out, err := conv.Convert(ctx, mathpage.Input{
//	    HTML: `<p>Euler: \(e^{i\pi} + 1 = 0\)</p>`,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out)
//
// The default engine runs MathJax 3 in headless Chrome (go-rod). Any type
// implementing Engine can replace it.
//
// # Conversion Pipeline
//
// Each call to Submit or Convert is one Job:
//
//  1. Options are resolved over the defaults (Resolve)
//  2. Markdown input, if enabled, is rendered with Goldmark
//  3. The page is parsed and every formula becomes a marker element
//  4. Each marker is replaced by a <span class="mathpage"> wrapper and its
//     engine call is issued without waiting for the previous one
//  5. Results are written into their wrappers as they arrive, in any order
//  6. Once all calls settled, the shared stylesheet and the optional glyph
//     container are added and the page is serialized
//
// A formula the engine rejects leaves its wrapper empty; the error goes to
// the converter's logger and the job still succeeds.
//
// # Configuration
//
// Converter-wide behavior uses functional options:
//
//	conv := mathpage.NewConverter(
//	    mathpage.WithPoolSize(4),
//	    mathpage.WithConcurrency(8),
//	    mathpage.WithCache(mathpage.NewMemoryCache(1024)),
//	    mathpage.WithLogger(log.New(os.Stderr, "math: ", 0)),
//	)
//
// Per-page options are passed via Input:
//
//	out, err := conv.Convert(ctx, mathpage.Input{
//	    HTML: page,
//	    Page: &mathpage.PageOptions{
//	        Output:        "mml",
//	        SingleDollars: mathpage.Bool(true),
//	        Fragment:      mathpage.Bool(true),
//	    },
//	    Typeset: &mathpage.TypesetOptions{
//	        Ex:             mathpage.Float(8),
//	        UseGlobalCache: mathpage.Bool(true),
//	    },
//	})
//
// # Hooks
//
// Input.Hooks observe a single job: BeforeConversion and AfterConversion run
// per formula, BeforeSerialization once with the final document.
//
// # Custom Output Kinds
//
// RegisterOutput (or Registry.Register on a converter-owned registry) adds an
// output kind and optionally a handler that writes the engine payload into
// the wrapper instead of the default inner-markup assignment.
//
// # Concurrency
//
// Jobs lease an engine from an EnginePool for their whole run. With a pool
// of size 1, jobs queue behind each other; with size N, up to N pages are
// converted at once. A Converter is safe for concurrent use.
package mathpage
