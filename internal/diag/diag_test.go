package diag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportIncludesStageTagAndMessage(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, StageLex, errors.New("[line 1:1] Lexical error: bad token"))
	out := buf.String()
	assert.Contains(t, out, "Lexical")
	assert.Contains(t, out, "bad token")
}

func TestReportAllSummarizesCount(t *testing.T) {
	var buf bytes.Buffer
	ReportAll(&buf, StageSema, []error{errors.New("a"), errors.New("b")})
	out := buf.String()
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
	assert.Contains(t, out, "2 errors")
}

func TestSuccessFormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "compiled '%s'", "main.lz")
	assert.Contains(t, buf.String(), "compiled 'main.lz'")
}
