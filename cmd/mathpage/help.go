package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mathpage [flags] [file ...]")
	fmt.Fprintln(w, "       mathpage <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Typeset the math in HTML or Markdown pages with MathJax.")
	fmt.Fprintln(w, "Without files, reads a page from stdin and writes it to stdout.")
	fmt.Fprintln(w, "With files, writes <name>.out.html next to each (or into --output).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  doctor        Check Chrome and the environment")
	fmt.Fprintln(w, "  completion    Generate shell completion script")
	fmt.Fprintln(w, "  version       Show version information")
	fmt.Fprintln(w, "  help          Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>          Output directory")
	fmt.Fprintln(w, "  -c, --config <name>         Config file name or path")
	fmt.Fprintln(w, "      --format <list>         Input formats (default: AsciiMath,TeX,MathML)")
	fmt.Fprintln(w, "      --markdown              Treat stdin as Markdown (.md files are detected)")
	fmt.Fprintln(w, "      --fragment              Output body content only")
	fmt.Fprintln(w, "      --dump-config           Print the effective config as YAML")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "      --output-kind <s>       SVG, CommonHTML, or MML (default: SVG)")
	fmt.Fprintln(w, "      --no-css                Don't inject the shared stylesheet")
	fmt.Fprintln(w, "      --global-cache          Share SVG glyph paths across the page")
	fmt.Fprintln(w, "      --fontURL <url>         URL for CommonHTML web fonts")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Typesetting:")
	fmt.Fprintln(w, "      --nodollars             Don't use single-dollar delimiters")
	fmt.Fprintln(w, "      --eqno <s>              Equation numbers: none, AMS, all")
	fmt.Fprintln(w, "      --ex <f>                Ex-size in pixels (default: 6)")
	fmt.Fprintln(w, "      --width <f>             Container width in ex (default: 100)")
	fmt.Fprintln(w, "      --linebreaks            Perform automatic line-breaking")
	fmt.Fprintln(w, "      --extensions <list>     Extra TeX packages, e.g. mhchem,physics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Speech:")
	fmt.Fprintln(w, "      --speech                Include speech text")
	fmt.Fprintln(w, "      --speechrules <s>       Ruleset: mathspeak, chromevox")
	fmt.Fprintln(w, "      --speechstyle <s>       Style: default, brief, sbrief")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Engine:")
	fmt.Fprintln(w, "      --mathjax-url <url>     MathJax 3 startup script")
	fmt.Fprintln(w, "      --cache <spec>          Result cache: memory, memory:N, redis://...")
	fmt.Fprintln(w, "  -w, --workers <n>           Browser engines (0 = auto)")
	fmt.Fprintln(w, "      --concurrency <n>       In-flight formulas per page")
	fmt.Fprintln(w, "  -t, --timeout <d>           Whole-page timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --formula-timeout <d>   Per-formula timeout (default: 10s)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet                 Only show errors")
	fmt.Fprintln(w, "  -v, --verbose               Show detailed timing")
	fmt.Fprintln(w, "      --version               Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mathpage help <command>' for details on a specific command.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: mathpage doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check that Chrome can be found and the environment can run it.")
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mathpage version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mathpage help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
