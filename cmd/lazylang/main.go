// Command lazylang compiles a single .lz source file to a native binary via
// a generated C intermediate, or reports what prevented it: the first
// lexical, syntax, codegen, or toolchain error, or every semantic error.
package main

import (
	"fmt"
	"os"
	"strings"

	"lazylang/internal/codegen"
	"lazylang/internal/compiler"
	"lazylang/internal/diag"
	"lazylang/internal/lexer"
	"lazylang/internal/parser"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <source-file> [-o binary] [-c c-output] [--no-binary]\n", args[0])
		return 1
	}

	var sourcePath, binaryOut, cOut string
	emitBinary := true

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-o":
			if i+1 >= len(rest) {
				fmt.Fprintln(os.Stderr, "error: -o requires a path")
				return 1
			}
			i++
			binaryOut = rest[i]
		case "-c":
			if i+1 >= len(rest) {
				fmt.Fprintln(os.Stderr, "error: -c requires a path")
				return 1
			}
			i++
			cOut = rest[i]
		case "--no-binary":
			emitBinary = false
		default:
			if sourcePath != "" {
				fmt.Fprintf(os.Stderr, "error: unexpected argument '%s'\n", rest[i])
				return 1
			}
			sourcePath = rest[i]
		}
	}

	if sourcePath == "" {
		fmt.Fprintln(os.Stderr, "error: no source file given")
		return 1
	}

	opts := compiler.Options{
		COutputPath:      cOut,
		BinaryOutputPath: binaryOut,
		EmitBinary:       emitBinary,
		CC:               strings.TrimSpace(os.Getenv("LAZYLANG_CC")),
	}

	c := compiler.NewCompiler()
	result, err := c.Compile(sourcePath, opts)
	if err != nil {
		reportFailure(err)
		return 1
	}

	fmt.Printf("Parsed %d import(s) and %d declaration(s)\n", result.ImportCount, result.DeclarationCount)
	fmt.Println("Semantic analysis completed successfully")
	fmt.Printf("Code generation completed: %s -> %s\n", result.CPath, result.BinaryPath)
	return 0
}

func reportFailure(err error) {
	switch e := err.(type) {
	case *compiler.MultiError:
		diag.ReportAll(os.Stderr, diag.StageSema, e.Errs)
	case *lexer.Error:
		diag.Report(os.Stderr, diag.StageLex, e)
	case *parser.Error:
		diag.Report(os.Stderr, diag.StageParse, e)
	case *codegen.Error:
		diag.Report(os.Stderr, diag.StageCodegen, e)
	default:
		diag.Report(os.Stderr, diag.StageToolchain, err)
	}
}
