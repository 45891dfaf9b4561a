package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phpguard/phpguard/internal/cache"
	"github.com/phpguard/phpguard/internal/oracle"
	"github.com/phpguard/phpguard/internal/types"
)

// brokenOracle reports a syntax error for any text containing BROKEN.
func brokenOracle(calls *atomic.Int32) oracle.Oracle {
	return oracle.Func(func(ctx context.Context, text string) (*oracle.SyntaxError, error) {
		if calls != nil {
			calls.Add(1)
		}
		if strings.Contains(text, "BROKEN") {
			return &oracle.SyntaxError{
				Message: "Parse error: syntax error, unexpected identifier \"BROKEN\" in /srv/tmp/x/unit.php on line 2",
				Line:    2,
			}, nil
		}
		return nil, nil
	})
}

func labelsOf(in []types.Indicator) []string {
	var out []string
	for _, i := range in {
		out = append(out, fmt.Sprintf("%s:%s@%d", i.File, i.Name, i.Line))
	}
	return out
}

func TestScan_Empty(t *testing.T) {
	res, err := Scan(context.Background(), brokenOracle(nil), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesChecked)
	assert.Equal(t, "No PHP files found.", res.Message)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Indicators)
}

func TestScan_FindingsAndOrder(t *testing.T) {
	units := []types.SourceUnit{
		{Label: "a.php", Text: "<?php exec('x');\nsystem('y');"},
		{Label: "inc/b.php", Text: "<?php\nBROKEN eval($z);"},
		{Label: "c.php", Text: "<?php echo 1;"},
		{Label: "d.php", Text: "<?php exec('x');"},
	}
	res, err := Scan(context.Background(), brokenOracle(nil), units, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.FilesChecked)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.SyntaxFinding{
		File:    "inc/b.php",
		Message: `PHP Parse error: syntax error, unexpected identifier "BROKEN" on line 2`,
	}, res.Errors[0])
	assert.Equal(t, "Detected issues in 1 file(s). Review details below.", res.Message)
	// identical indicators in different files stay separate
	assert.Equal(t, []string{"a.php:exec@1", "a.php:system@2", "inc/b.php:eval@2", "d.php:exec@1"}, labelsOf(res.Indicators))
}

func TestScan_NoFindings(t *testing.T) {
	units := []types.SourceUnit{{Label: "a.php", Text: "<?php echo 1;"}, {Label: "b.php", Text: "<?php"}}
	res, err := Scan(context.Background(), brokenOracle(nil), units, Options{Kind: KindPlugin})
	require.NoError(t, err)
	assert.Equal(t, "No syntax errors detected in the scanned plugin.", res.Message)
	assert.Empty(t, res.Errors)
}

func TestScan_ThreadsKeepOrder(t *testing.T) {
	var units []types.SourceUnit
	for i := 0; i < 24; i++ {
		units = append(units, types.SourceUnit{Label: fmt.Sprintf("f%02d.php", i), Text: "<?php popen('x');"})
	}
	slow := oracle.Func(func(ctx context.Context, text string) (*oracle.SyntaxError, error) {
		time.Sleep(time.Millisecond)
		return nil, nil
	})
	var progress atomic.Int32
	res, err := Scan(context.Background(), slow, units, Options{Threads: 6, Progress: func() { progress.Add(1) }})
	require.NoError(t, err)
	require.Len(t, res.Indicators, len(units))
	for i, ind := range res.Indicators {
		assert.Equal(t, units[i].Label, ind.File)
	}
	assert.Equal(t, int32(len(units)), progress.Load())
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orc := oracle.Func(func(ctx context.Context, text string) (*oracle.SyntaxError, error) {
		if strings.Contains(text, "stop") {
			cancel()
			return nil, ctx.Err()
		}
		return nil, nil
	})
	units := []types.SourceUnit{
		{Label: "1.php", Text: "<?php system(1);"},
		{Label: "2.php", Text: "<?php // stop"},
		{Label: "3.php", Text: "<?php system(3);"},
	}
	res, err := Scan(ctx, orc, units, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.FilesChecked)
	assert.Equal(t, []string{"1.php:system@1"}, labelsOf(res.Indicators))
	assert.Empty(t, res.Errors)
}

func TestScan_OracleUnavailable(t *testing.T) {
	orc := oracle.Func(func(context.Context, string) (*oracle.SyntaxError, error) {
		return nil, fmt.Errorf("php missing: %w", oracle.ErrUnavailable)
	})
	_, err := Scan(context.Background(), orc, []types.SourceUnit{{Label: "a.php", Text: "<?php"}}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScanUnavailable)
	assert.ErrorIs(t, err, oracle.ErrUnavailable)

	_, err = Scan(context.Background(), nil, nil, Options{})
	assert.ErrorIs(t, err, ErrScanUnavailable)
}

func TestScan_UnitFailureDoesNotAbort(t *testing.T) {
	orc := oracle.Func(func(_ context.Context, text string) (*oracle.SyntaxError, error) {
		if strings.Contains(text, "crash") {
			return nil, errors.New("checker crashed")
		}
		return nil, nil
	})
	units := []types.SourceUnit{
		{Label: "a.php", Text: "<?php // crash"},
		{Label: "b.php", Text: "<?php shell_exec('x');"},
	}
	res, err := Scan(context.Background(), orc, units, Options{})
	require.NoError(t, err)
	assert.Equal(t, []types.SyntaxFinding{{File: "a.php", Message: UnitFailureMessage}}, res.Errors)
	assert.Equal(t, []string{"b.php:shell_exec@1"}, labelsOf(res.Indicators))
}

func TestScan_EmptyDiagnostic(t *testing.T) {
	orc := oracle.Func(func(context.Context, string) (*oracle.SyntaxError, error) {
		return &oracle.SyntaxError{Message: "  \n"}, nil
	})
	res, err := Scan(context.Background(), orc, []types.SourceUnit{{Label: "a.php", Text: "<?php"}}, Options{})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, UnknownParseError, res.Errors[0].Message)
}

func TestScan_Cache(t *testing.T) {
	var calls atomic.Int32
	orc := brokenOracle(&calls)
	db := cache.DB{}
	units := []types.SourceUnit{
		{Label: "a.php", Text: "<?php BROKEN"},
		{Label: "b.php", Text: "<?php exec(1);"},
	}
	first, err := run(context.Background(), orc, units, Options{Cache: &db})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, db.Entries, 2)

	second, err := run(context.Background(), orc, units, Options{Cache: &db})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, second.Cached)
	assert.Equal(t, first.ScanResult, second.ScanResult)

	units[1].Text = "<?php exec(2);"
	_, err = run(context.Background(), orc, units, Options{Cache: &db})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScanSnippet(t *testing.T) {
	var seen string
	orc := oracle.Func(func(_ context.Context, text string) (*oracle.SyntaxError, error) {
		seen = text
		if strings.Contains(text, "BROKEN") {
			return &oracle.SyntaxError{Message: "PHP Parse error: syntax error in /tmp/snip.php on line 2", Line: 2}, nil
		}
		return nil, nil
	})

	res, err := ScanSnippet(context.Background(), orc, "eval($_GET['c']);", Options{})
	require.NoError(t, err)
	assert.Equal(t, "<?php\neval($_GET['c']);", seen)
	assert.Equal(t, "No syntax errors detected in the pasted code.", res.Message)
	assert.Equal(t, 1, res.FilesChecked)
	require.Len(t, res.Indicators, 1)
	assert.Equal(t, "eval", res.Indicators[0].Name)
	assert.Equal(t, 2, res.Indicators[0].Line)
	assert.Empty(t, res.Indicators[0].File)

	res, err = ScanSnippet(context.Background(), orc, "<?php\nBROKEN", Options{})
	require.NoError(t, err)
	assert.Equal(t, "<?php\nBROKEN", seen)
	assert.Equal(t, "Detected syntax issues in the pasted code. Review details below.", res.Message)
	assert.Equal(t, []types.SyntaxFinding{{File: SnippetLabel, Message: "PHP Parse error: syntax error on line 2"}}, res.Errors)

	_, err = ScanSnippet(context.Background(), orc, " \n\t", Options{})
	assert.ErrorIs(t, err, ErrEmptySnippet)
}

func TestSummary(t *testing.T) {
	tests := []struct {
		kind        Kind
		files, errs int
		want        string
	}{
		{KindFiles, 0, 0, "No PHP files found."},
		{KindFiles, 3, 0, "No syntax errors detected in the scanned files."},
		{KindFiles, 3, 2, "Detected issues in 2 file(s). Review details below."},
		{KindPlugin, 0, 0, "No PHP files found in this plugin."},
		{KindPlugin, 1, 0, "No syntax errors detected in the scanned plugin."},
		{KindPlugin, 1, 1, "Detected issues in 1 file(s). Review details below."},
		{KindArchive, 0, 0, "No PHP files found in the uploaded ZIP."},
		{KindArchive, 4, 0, "No syntax errors detected in the uploaded ZIP."},
		{KindArchive, 4, 3, "Detected issues in 3 file(s) in the uploaded ZIP."},
		{KindSnippet, 1, 0, "No syntax errors detected in the pasted code."},
		{KindSnippet, 1, 1, "Detected syntax issues in the pasted code. Review details below."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Summary(tt.kind, tt.files, tt.errs))
	}
}
