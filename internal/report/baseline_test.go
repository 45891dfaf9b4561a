package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phpguard/phpguard/internal/types"
)

func TestBaseline_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), DefaultBaselineFile)
	res := sampleResult()
	require.NoError(t, SaveBaseline(p, res.Indicators[:1]))

	base, err := LoadBaseline(p)
	require.NoError(t, err)
	assert.Len(t, base.Items, 1)

	fresh := FilterNewIndicators(res.Indicators, base)
	require.Len(t, fresh, 1)
	assert.Equal(t, "create_function", fresh[0].Name)

	// a moved indicator is new again
	moved := res.Indicators[0]
	moved.Line++
	assert.Len(t, FilterNewIndicators([]types.Indicator{moved}, base), 1)
}

func TestLoadBaseline_Errors(t *testing.T) {
	dir := t.TempDir()
	b, err := LoadBaseline(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.NotNil(t, b.Items)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadBaseline(bad)
	assert.ErrorContains(t, err, "parse baseline")
}

func TestShouldFail(t *testing.T) {
	high := types.ScanResult{Indicators: []types.Indicator{{Severity: types.SevHigh}}}
	med := types.ScanResult{Indicators: []types.Indicator{{Severity: types.SevMed}}}
	syntax := types.ScanResult{Errors: []types.SyntaxFinding{{File: "a.php"}}}

	tests := []struct {
		name   string
		res    types.ScanResult
		failOn string
		want   bool
	}{
		{"clean", types.ScanResult{}, "medium", false},
		{"high at high", high, "high", true},
		{"medium at high", med, "high", false},
		{"medium at medium", med, "medium", true},
		{"unknown level means high", med, "", false},
		{"syntax error always", syntax, "high", true},
		{"none disables", syntax, "none", false},
		{"none ignores indicators", high, "none", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFail(tt.res, tt.failOn))
		})
	}
}
