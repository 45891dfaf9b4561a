package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_Smoke(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.php"), []byte("<?php echo 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.php"), []byte("<?php\n$a = 1\n$b = 2;\n"), 0o644))

	res, err := Scan(context.Background(), Config{Root: dir, NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesChecked)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "bad.php", res.Errors[0].File)
	assert.Equal(t, "Detected issues in 1 file(s). Review details below.", res.Message)
}

func TestScanSnippet(t *testing.T) {
	res, err := ScanSnippet(context.Background(), "shell_exec($_GET['c']);")
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Indicators, 1)
	assert.Equal(t, "shell_exec", res.Indicators[0].Name)
	assert.Equal(t, 2, res.Indicators[0].Line)

	_, err = ScanSnippet(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptySnippet)
}

func TestMarshalRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalResult(&buf, ScanResult{Message: "m", FilesChecked: 3}))
	assert.True(t, strings.Contains(buf.String(), `"errors": []`), buf.String())

	got, err := UnmarshalResult(&buf)
	require.NoError(t, err)
	assert.Equal(t, "m", got.Message)
	assert.Equal(t, 3, got.FilesChecked)
	assert.NotNil(t, got.Indicators)
}

func TestIndicatorIDs(t *testing.T) {
	ids := IndicatorIDs()
	require.NotEmpty(t, ids)
	assert.Equal(t, "eval", ids[0])
}
