package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSourceWritesGeneratedC(t *testing.T) {
	dir := t.TempDir()
	cPath := filepath.Join(dir, "out.c")

	c := NewCompiler()
	result, err := c.CompileSource([]byte("main: () -> null = ()\n    return\n"), Options{
		COutputPath: cPath,
		EmitBinary:  false,
	})
	require.NoError(t, err)
	assert.Equal(t, cPath, result.CPath)
	assert.False(t, result.EmittedBin)

	generated, err := os.ReadFile(cPath)
	require.NoError(t, err)
	assert.Contains(t, string(generated), "lz_fn_main")
}

func TestCompileSourceReportsParseErrors(t *testing.T) {
	c := NewCompiler()
	_, err := c.CompileSource([]byte("main: ("), Options{EmitBinary: false})
	require.Error(t, err)
}

func TestCompileSourceReportsSemanticErrors(t *testing.T) {
	dir := t.TempDir()
	c := NewCompiler()
	_, err := c.CompileSource([]byte(`main: () -> null = ()
    x: int = 1
    x: int = 2
    return
`), Options{COutputPath: filepath.Join(dir, "out.c"), EmitBinary: false})
	require.Error(t, err)
	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.NotEmpty(t, multi.Errs)
}

func TestCompileFromReader(t *testing.T) {
	dir := t.TempDir()
	c := NewCompiler()
	src := strings.NewReader("main: () -> null = ()\n    return\n")
	_, err := c.CompileFromReader(src, Options{COutputPath: filepath.Join(dir, "out.c"), EmitBinary: false})
	require.NoError(t, err)
}

func TestCompileTestdataScenarios(t *testing.T) {
	cases := []struct {
		file      string
		wantError bool
		stage     string
	}{
		{"hello.lz", false, ""},
		{"tail_return.lz", false, ""},
		{"struct_point.lz", false, ""},
		{"immutable_assign.lz", true, "Semantic"},
		{"unused_result.lz", true, "Semantic"},
		{"flow_mode_mix.lz", true, "Semantic"},
		{"indentation_error.lz", true, "Lexical"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.file, func(t *testing.T) {
			dir := t.TempDir()
			c := NewCompiler()
			_, err := c.Compile(filepath.Join("..", "..", "testdata", tc.file), Options{
				COutputPath: filepath.Join(dir, "out.c"),
				EmitBinary:  false,
			})
			if !tc.wantError {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.stage != "" {
				assert.Contains(t, err.Error(), tc.stage)
			}
		})
	}
}
