// Package compiler sequences the lexer, parser, semantic analysis, and C
// codegen stages into the single Compile entry point the CLI drives.
package compiler

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"lazylang/internal/codegen"
	"lazylang/internal/parser"
	"lazylang/internal/runtimec"
	"lazylang/internal/sema"
)

const (
	defaultCOutput      = "lazylang_out.c"
	defaultBinaryOutput = "lazylang_out"
)

// Options configures one Compile invocation. Empty paths select the default
// output names (lazylang_out.c, lazylang_out); a binary is built only when
// EmitBinary is set, which the zero value leaves false.
type Options struct {
	COutputPath      string
	BinaryOutputPath string
	EmitBinary       bool
	// CC overrides the C compiler invoked to build the binary. Empty means
	// "probe clang, then cc" (see LAZYLANG_CC in cmd/lazylang).
	CC string
}

func (o Options) cOutput() string {
	if o.COutputPath != "" {
		return o.COutputPath
	}
	return defaultCOutput
}

func (o Options) binaryOutput() string {
	if o.BinaryOutputPath != "" {
		return o.BinaryOutputPath
	}
	return defaultBinaryOutput
}

// Result reports what a successful Compile produced.
type Result struct {
	CPath            string
	BinaryPath       string
	EmittedBin       bool
	ImportCount      int
	DeclarationCount int
}

// Compiler runs the full source-to-binary pipeline. It carries no state
// between calls; every field is request-scoped Options.
type Compiler struct{}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile reads filename from disk and runs it through the pipeline.
func (c *Compiler) Compile(filename string, opts Options) (*Result, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading '%s': %w", filename, err)
	}
	return c.CompileSource(src, opts)
}

// CompileFromReader drains r and runs the result through the pipeline.
func (c *Compiler) CompileFromReader(r io.Reader, opts Options) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return c.CompileSource(src, opts)
}

// CompileSource runs lex -> parse -> sema -> codegen -> (optional) C
// toolchain invocation over src. Parse and codegen errors are returned
// as-is; semantic diagnostics are returned together in a *MultiError.
// Callers that want per-stage diagnostics formatting should use the diag
// package.
func (c *Compiler) CompileSource(src []byte, opts Options) (*Result, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}

	if errs := sema.Check(prog); len(errs) > 0 {
		return nil, &MultiError{Errs: errs}
	}

	generated, err := codegen.Generate(prog)
	if err != nil {
		return nil, err
	}

	cPath := opts.cOutput()
	if err := os.WriteFile(cPath, []byte(generated), 0o644); err != nil {
		return nil, fmt.Errorf("writing '%s': %w", cPath, err)
	}

	result := &Result{
		CPath:            cPath,
		BinaryPath:       opts.binaryOutput(),
		ImportCount:      len(prog.Imports),
		DeclarationCount: len(prog.Declarations),
	}
	if !opts.EmitBinary {
		return result, nil
	}

	if err := c.buildBinary(cPath, result.BinaryPath, opts.CC); err != nil {
		return nil, err
	}
	result.EmittedBin = true
	return result, nil
}

// MultiError collects every semantic diagnostic from one Check pass.
type MultiError struct {
	Errs []error
}

func (m *MultiError) Error() string {
	if len(m.Errs) == 0 {
		return "semantic analysis failed"
	}
	return fmt.Sprintf("%s (and %d more)", m.Errs[0].Error(), len(m.Errs)-1)
}

// buildBinary materializes the embedded runtime next to cPath and invokes
// the C toolchain over both translation units. When opts.CC is empty, clang
// is tried first and cc is the fallback, mirroring the reference backend's
// probing order.
func (c *Compiler) buildBinary(cPath, binaryPath, preferredCC string) error {
	dir := filepath.Dir(cPath)
	headerPath := filepath.Join(dir, "runtime.h")
	runtimeCPath := filepath.Join(dir, "runtime.c")
	if err := os.WriteFile(headerPath, runtimec.Header, 0o644); err != nil {
		return fmt.Errorf("writing runtime.h: %w", err)
	}
	if err := os.WriteFile(runtimeCPath, runtimec.Source, 0o644); err != nil {
		return fmt.Errorf("writing runtime.c: %w", err)
	}

	compilers := []string{preferredCC}
	if preferredCC == "" {
		compilers = []string{"clang", "cc"}
	}

	var lastErr error
	for _, cc := range compilers {
		if cc == "" {
			continue
		}
		if _, err := exec.LookPath(cc); err != nil {
			lastErr = fmt.Errorf("%s not found on PATH", cc)
			continue
		}
		cmd := exec.Command(cc, "-std=c11", "-Wall", "-Wextra", cPath, runtimeCPath, "-o", binaryPath)
		cmd.Dir = dir
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s failed while building '%s': %w\n%s", cc, binaryPath, err, output)
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no C compiler configured")
	}
	return fmt.Errorf("no suitable C compiler found: %w", lastErr)
}
