// stackvm is the command-line entry point for the VM core: it
// assembles and runs bytecode text, disassembles a program, or parses
// and evaluates source through internal/ast and internal/evaluator.
// Flag shape and REPL loop follow the teacher's cmd/micro-psil/main.go.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/psilLang/stackvm/internal/asm"
	"github.com/psilLang/stackvm/internal/ast"
	"github.com/psilLang/stackvm/internal/evaluator"
	"github.com/psilLang/stackvm/vm"
)

func main() {
	debug := flag.Bool("debug", false, "enable DebugPrintUnsigned tracing")
	disasm := flag.Bool("disasm", false, "disassemble instead of running")
	emit := flag.String("emit", "", "for source input: \"ast\" to print the parsed tree instead of evaluating")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		repl(*debug)
		return
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	source := string(data)

	if *emit != "" || looksLikeSource(source) {
		runSource(source, *emit)
		return
	}
	runAssembly(source, *debug, *disasm)
}

// looksLikeSource is a crude heuristic, the mirror of the teacher's
// isBytecode check: an "fn" keyword means this is ast/evaluator input
// rather than assembly text.
func looksLikeSource(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "fn ") {
			return true
		}
	}
	return false
}

func runSource(source, emit string) {
	prog, err := ast.Parse(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}
	if emit == "ast" {
		fmt.Printf("%+v\n", prog)
		return
	}
	e := evaluator.New(os.Stdout)
	if err := e.Run(prog); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

func runAssembly(source string, debug, disasmOnly bool) {
	a := asm.NewAssembler()
	insts, err := a.Assemble(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly error: %v\n", err)
		os.Exit(1)
	}
	if disasmOnly {
		fmt.Print(asm.Disassemble(insts))
		return
	}

	m := vm.New(insts)
	var runErr error
	if debug {
		runErr = m.RunDebug(os.Stdout)
	} else {
		runErr = m.Run()
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", runErr)
		os.Exit(1)
	}
}

func repl(debug bool) {
	fmt.Println("stackvm")
	fmt.Println("Type assembly (or 'fn main() { ... }' source), 'help' for commands, 'quit' to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return
		case line == "help":
			printHelp()
		case strings.HasPrefix(line, "fn "):
			runSource(line, "")
		default:
			runAssembly(line, debug, false)
		}
	}
}

func printHelp() {
	fmt.Print(`Commands:
  quit            - exit the REPL
  help            - show this help

Input:
  one assembly instruction per line; each line is assembled and run
  as a complete program on its own, e.g.: exit
  (multi-instruction programs run from a file argument)
  or a single-line "fn main() { ... }" declaration
`)
}
