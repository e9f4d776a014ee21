package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagNumber
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string   // --output
	Short    string   // -o (empty if none)
	Type     flagType // completion type
	Desc     string   // help text
	Values   []string // for enum flags
	FileGlob string   // for file flags
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Values   []string // enum values
	FileGlob string   // file glob pattern
	IsDir    bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"output-kind": {Values: []string{"SVG", "CommonHTML", "MML"}},
	"eqno":        {Values: []string{"none", "AMS", "all"}},
	"speechrules": {Values: []string{"mathspeak", "chromevox"}},
	"speechstyle": {Values: []string{"default", "brief", "sbrief"}},
	"config":      {FileGlob: "*.yaml,*.yml"},
	"output":      {IsDir: true},
}

// subcommands are completed in first position next to input files.
var subcommands = []string{"doctor", "completion", "version", "help"}

// inputGlob matches the files mathpage converts.
const inputGlob = "*.html,*.htm,*.md,*.markdown"

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "float64":
			fd.Type = flagNumber
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// completionFlags returns the convert flags, read from the real FlagSet.
func completionFlags() []flagDef {
	return extractFlagsFromFlagSet(newConvertFlagSet(&convertFlags{}))
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	flags := completionFlags()

	var script string
	switch shell {
	case ShellBash:
		script = bashCompletion(flags)
	case ShellZsh:
		script = zshCompletion(flags)
	case ShellFish:
		script = fishCompletion(flags)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}

	_, err := io.WriteString(w, script)
	return err
}

func bashCompletion(flags []flagDef) string {
	var b strings.Builder
	var words []string
	for _, f := range flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}

	b.WriteString("# bash completion for mathpage\n")
	b.WriteString("_mathpage() {\n")
	b.WriteString("    local cur prev\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")
	b.WriteString("    case \"$prev\" in\n")
	for _, f := range flags {
		pattern := "--" + f.Long
		if f.Short != "" {
			pattern += "|-" + f.Short
		}
		switch f.Type {
		case flagEnum:
			fmt.Fprintf(&b, "        %s) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;\n", pattern, strings.Join(f.Values, " "))
		case flagFile:
			fmt.Fprintf(&b, "        %s) COMPREPLY=($(compgen -f -- \"$cur\")); return ;;\n", pattern)
		case flagDir:
			fmt.Fprintf(&b, "        %s) COMPREPLY=($(compgen -d -- \"$cur\")); return ;;\n", pattern)
		}
	}
	b.WriteString("        completion) COMPREPLY=($(compgen -W \"bash zsh fish\" -- \"$cur\")); return ;;\n")
	b.WriteString("    esac\n\n")
	b.WriteString("    if [[ \"$cur\" == -* ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(words, " "))
	b.WriteString("        return\n")
	b.WriteString("    fi\n")
	b.WriteString("    if [[ $COMP_CWORD -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(subcommands, " "))
	b.WriteString("    fi\n")
	b.WriteString("    COMPREPLY+=($(compgen -f -- \"$cur\"))\n")
	b.WriteString("}\n")
	b.WriteString("complete -o filenames -F _mathpage mathpage\n")
	return b.String()
}

func zshCompletion(flags []flagDef) string {
	var b strings.Builder

	b.WriteString("#compdef mathpage\n\n")
	b.WriteString("_mathpage() {\n")
	b.WriteString("    _arguments -s \\\n")
	for _, f := range flags {
		desc := zshEscape(f.Desc)
		var action string
		switch f.Type {
		case flagBool:
			action = ""
		case flagEnum:
			action = fmt.Sprintf(":%s:(%s)", f.Long, strings.Join(f.Values, " "))
		case flagFile:
			action = fmt.Sprintf(":%s:_files -g '%s'", f.Long, zshGlob(f.FileGlob))
		case flagDir:
			action = fmt.Sprintf(":%s:_files -/", f.Long)
		default:
			action = fmt.Sprintf(":%s:", f.Long)
		}
		if f.Short != "" {
			fmt.Fprintf(&b, "        '(-%s --%s)'{-%s,--%s}'[%s]%s' \\\n", f.Short, f.Long, f.Short, f.Long, desc, action)
		} else {
			fmt.Fprintf(&b, "        '--%s[%s]%s' \\\n", f.Long, desc, action)
		}
	}
	fmt.Fprintf(&b, "        '1: :(%s)' \\\n", strings.Join(subcommands, " "))
	fmt.Fprintf(&b, "        '*:input:_files -g \"%s\"'\n", zshGlob(inputGlob))
	b.WriteString("}\n\n")
	b.WriteString("compdef _mathpage mathpage\n")
	return b.String()
}

func fishCompletion(flags []flagDef) string {
	var b strings.Builder

	b.WriteString("# fish completion for mathpage\n")
	fmt.Fprintf(&b, "complete -c mathpage -n '__fish_use_subcommand' -a '%s'\n", strings.Join(subcommands, " "))
	b.WriteString("complete -c mathpage -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'\n")
	for _, f := range flags {
		line := "complete -c mathpage -l " + f.Long
		if f.Short != "" {
			line += " -s " + f.Short
		}
		switch f.Type {
		case flagBool:
		case flagEnum:
			line += fmt.Sprintf(" -x -a '%s'", strings.Join(f.Values, " "))
		case flagFile:
			line += " -r -F"
		case flagDir:
			line += " -x -a '(__fish_complete_directories)'"
		default:
			line += " -x"
		}
		line += fmt.Sprintf(" -d '%s'", strings.ReplaceAll(f.Desc, "'", `\'`))
		b.WriteString(line + "\n")
	}
	return b.String()
}

// zshEscape escapes characters that end an _arguments description.
func zshEscape(s string) string {
	r := strings.NewReplacer("'", `'\''`, "[", `\[`, "]", `\]`, ":", `\:`)
	return r.Replace(s)
}

// zshGlob turns "*.yaml,*.yml" into "*.(yaml|yml)".
func zshGlob(globs string) string {
	var exts []string
	for _, g := range strings.Split(globs, ",") {
		exts = append(exts, strings.TrimPrefix(g, "*."))
	}
	return "*.(" + strings.Join(exts, "|") + ")"
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}

	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mathpage completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(mathpage completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (before compinit):")
	fmt.Fprintln(w, "    eval \"$(mathpage completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    mathpage completion fish > ~/.config/fish/completions/mathpage.fish")
}
