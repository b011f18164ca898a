// Package diag formats compiler diagnostics for the terminal, colorizing
// stage and severity the way a developer scanning a long error list expects.
package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Stage identifies which pipeline phase produced a diagnostic.
type Stage string

const (
	StageLex       Stage = "Lexical"
	StageParse     Stage = "Parse"
	StageSema      Stage = "Semantic"
	StageCodegen   Stage = "Codegen"
	StageToolchain Stage = "Toolchain"
)

// Located names the errors diagnostics are built from. It is satisfied by
// any error; each stage's own Error type carries its source position in
// its message text.
type Located interface {
	error
}

var (
	stageColor = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
)

// Report writes one formatted diagnostic line to w, prefixed with a
// colorized stage tag. The error's own message already carries its
// "[line L:C] Stage error: ..." text; Report adds the stage tag used to
// visually separate diagnostics in a multi-error report.
func Report(w io.Writer, stage Stage, err error) {
	fmt.Fprint(w, StageTag(stage)+" ")
	fmt.Fprint(w, errColor.Sprint("error: "))
	fmt.Fprintln(w, err.Error())
}

// ReportAll writes every error in errs, followed by a count summary.
func ReportAll(w io.Writer, stage Stage, errs []error) {
	for _, err := range errs {
		Report(w, stage, err)
	}
	plural := ""
	if len(errs) != 1 {
		plural = "s"
	}
	fmt.Fprintln(w, errColor.Sprintf("%s analysis failed with %d error%s", stage, len(errs), plural))
}

// Success writes a colorized confirmation line. The CLI's own success
// output (§6.1) is plain, uncolored text matched against a fixed contract,
// so it does not call this; Success remains here for other colorized
// confirmations (tooling invocations, verbose tracing).
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, okColor.Sprint("✓ ")+fmt.Sprintf(format, args...))
}

// StageTag returns the colorized "[Stage]" label that Report puts in front
// of each diagnostic.
func StageTag(stage Stage) string {
	return stageColor.Sprintf("[%s]", stage)
}
