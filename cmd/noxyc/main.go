// Command noxyc is the Noxy compiler front end: it drives
// internal/compiler's Lexer->Parser->Resolver->Checker->Codegen pipeline and
// writes the resulting LLVM IR, grounded on the teacher's alas-compile CLI
// (flag-based, stdin-or-file input, single textual output file). An
// -interp flag switches to internal/interpreter's tree-walking oracle
// instead, for quickly checking a program's printed output without an
// LLVM toolchain on hand, mirroring alas-run's role alongside alas-compile.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/estevaofon/noxy/internal/compiler"
	"github.com/estevaofon/noxy/internal/interpreter"
	"github.com/estevaofon/noxy/internal/parser"
	"github.com/estevaofon/noxy/internal/resolver"
)

func main() {
	var input string
	var output string
	var interp bool
	var root string
	flag.StringVar(&input, "file", "", "Noxy source file to compile (reads from stdin if not provided)")
	flag.StringVar(&output, "o", "", "Output file (default: input file with .ll extension)")
	flag.BoolVar(&interp, "interp", false, "Run via the reference interpreter instead of emitting LLVM IR")
	flag.StringVar(&root, "root", "", "Extra module search root for `use` resolution")
	flag.Parse()

	filename, src, err := readSource(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source: %v\n", err)
		os.Exit(1)
	}

	if interp {
		runInterpreted(filename, src, root)
		return
	}

	c := compiler.New(compiler.Options{ExtraRoots: extraRoots(root)})
	mod, diagErr := c.Compile(filename, src)
	if diagErr != nil {
		fmt.Fprintln(os.Stderr, diagErr.Error())
		os.Exit(1)
	}

	if output == "" {
		if input == "" {
			output = "output.ll"
		} else {
			base := strings.TrimSuffix(input, filepath.Ext(input))
			output = base + ".ll"
		}
	}
	if err := os.WriteFile(output, []byte(mod.String()), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing LLVM IR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("LLVM IR written to %s\n", output)
}

func extraRoots(root string) []string {
	if root == "" {
		return nil
	}
	return []string{root}
}

// runInterpreted parses, resolves imports, and runs the program through
// internal/interpreter, printing whatever the program's Print statements
// produced.
func runInterpreted(filename, src, root string) {
	prog, perr := parser.Parse(filename, src)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.Error())
		os.Exit(1)
	}

	res := resolver.New(extraRoots(root)...)
	imports := make(map[string]map[string]resolver.Binding)
	for i := range prog.Statements {
		s := &prog.Statements[i]
		if s.UseDecl == nil {
			continue
		}
		bindings, err := res.Resolve(s.UseDecl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		imports[s.UseDecl.Module] = bindings
	}

	it := interpreter.New()
	out, err := it.Run(prog, imports)
	fmt.Print(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

func readSource(input string) (filename string, src string, err error) {
	var data []byte
	if input == "" {
		data, err = io.ReadAll(os.Stdin)
		return "<stdin>", string(data), err
	}
	data, err = os.ReadFile(input)
	return input, string(data), err
}
