// Command det is the CLI front end for the det scripting language: no
// arguments starts an interactive prompt, one path argument runs a .det
// file, and -d/--pda-debug turns on the parser's grammar trace and the
// VM's instruction trace (spec.md §6). This replaces the teacher's
// cmd/smog binary, generalized from smog's period-terminated REPL and
// binary .sg compile/disassemble commands to det's semicolon-terminated
// grammar and in-memory-only bytecode (spec.md §6: "need not be a stable
// persistence format" — there is no file format to compile to or from).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/kristofer/det/pkg/det"
	"github.com/kristofer/det/pkg/vm"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	pdaDebug    bool
	showVersion bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "det [file]",
		Short: "det - a small statically-typed scripting language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("det version %s\n", version)
				return nil
			}
			if len(args) == 0 {
				return runREPL()
			}
			return runFile(args[0])
		},
	}
	root.PersistentFlags().BoolVarP(&pdaDebug, "pda-debug", "d", false, "trace parser grammar rules and VM instructions")
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "print the det version and exit")

	root.AddCommand(newRunCmd(), newReplCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the det version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("det version %s\n", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a .det source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}
}

// runFile executes a single .det source file to completion. A non-".det"
// extension is a colored warning, not an error, matching spec.md §6 — the
// file is still run.
func runFile(path string) error {
	if ext := filepath.Ext(path); ext != ".det" {
		color.Yellow("warning: %s does not have a .det extension", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	in := newInterpreter(os.Stdout)
	status, value, err := in.Run(string(data))
	if err != nil {
		color.Red("%s", err)
	}
	if pdaDebug && status == det.StatusOK {
		fmt.Fprint(os.Stdout, dumpDebug(value))
	}
	if status != det.StatusOK {
		return fmt.Errorf("%s", status)
	}
	return nil
}

// runREPL starts the interactive prompt: one persistent Interpreter reads
// semicolon-terminated statements line by line, printing the halting value
// of each complete input (grounded on the teacher's runREPL/evalREPL, whose
// multi-line buffering this generalizes from a trailing '.' to det's ';'
// and '}' statement terminators).
func runREPL() error {
	color.Cyan("det %s -- type an expression, or :quit to exit", version)

	line, err := newLiner()
	if err != nil {
		return err
	}
	defer line.Close()

	in := newInterpreter(os.Stdout)

	var buf strings.Builder
	for {
		prompt := "det> "
		if buf.Len() > 0 {
			prompt = "...> "
		}

		text, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		if buf.Len() == 0 {
			switch strings.TrimSpace(text) {
			case ":quit", ":exit":
				return nil
			case "":
				continue
			}
		}

		buf.WriteString(text)
		buf.WriteString("\n")

		trimmed := strings.TrimSpace(buf.String())
		if !strings.HasSuffix(trimmed, ";") && !strings.HasSuffix(trimmed, "}") {
			continue
		}

		line.AppendHistory(trimmed)
		status, value, err := in.Run(trimmed)
		buf.Reset()

		switch status {
		case det.StatusOK:
			fmt.Println(value.String())
			if pdaDebug {
				fmt.Print(dumpDebug(value))
			}
		case det.StatusCompileError:
			color.Red("%s", err)
		case det.StatusRuntimeError:
			color.Red("%s", err)
		}
	}
}

func newInterpreter(out io.Writer) *det.Interpreter {
	var opts []det.Option
	if pdaDebug {
		opts = append(opts, det.WithParseTrace())
	}
	in := det.New(out, opts...)
	if pdaDebug {
		in.SetTracer(vm.NewTracer(out))
	}
	return in
}

func newLiner() (*liner.State, error) {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return line, nil
}

// dumpDebug is used by the -d flag to pretty-print the object.Value a
// successful run halted with, after the parser and VM traces. Kept small
// and unexported: it is a debugging aid, not part of det's contract.
func dumpDebug(v any) string {
	return spew.Sdump(v)
}
