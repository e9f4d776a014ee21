// Command mathpage typesets the math in HTML or Markdown pages with MathJax.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command line and returns the process exit code.
// Anything that is not a subcommand is a conversion.
func runMain(args []string, env *Environment) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	rest := args[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case "version":
			printVersion(env.Stdout)
			return ExitSuccess
		case "help":
			runHelp(rest[1:], env)
			return ExitSuccess
		case "doctor":
			return runDoctorCmd(rest[1:], env)
		case "completion":
			if err := runCompletion(rest[1:], env); err != nil {
				fmt.Fprintln(env.Stderr, err)
				return exitCodeFor(err)
			}
			return ExitSuccess
		}
	}

	flags, files, err := parseConvertFlags(rest)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\nRun 'mathpage help' for usage.\n", err)
		return ExitUsage
	}
	if flags.version {
		printVersion(env.Stdout)
		return ExitSuccess
	}

	setMaxProcs(flags.common.verbose, env.Stderr)

	if err := runConvert(ctx, files, flags, env); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, errorHint(err, flags.engine.mathjaxURL))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota, which sizes the
// engine pool. Logs only in verbose mode.
func setMaxProcs(verbose bool, w io.Writer) {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(w, format+"\n", args...)
		}))
		return
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mathpage %s\n", Version)
}
