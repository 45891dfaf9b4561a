package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/phpguard/phpguard/internal/types"
)

// LastScan stores the most recent result for a root so it can be re-rendered
// without scanning again.
type LastScan struct {
	Result    types.ScanResult `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
	Root      string           `json:"root"`
}

func resultsPath(root string) string {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "phpguard_last_scan.json")
	}
	return filepath.Join(root, ".phpguard_last_scan.json")
}

// SaveResults saves a scan result for root.
func SaveResults(root string, res types.ScanResult) error {
	b, err := json.MarshalIndent(LastScan{
		Result:    res.Normalize(),
		Timestamp: time.Now().UTC(),
		Root:      root,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0644)
}

// LoadResults loads the last scan result saved for root.
func LoadResults(root string) (LastScan, error) {
	var last LastScan
	f, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return last, err
	}
	if err := json.Unmarshal(f, &last); err != nil {
		return last, err
	}
	last.Result = last.Result.Normalize()
	return last, nil
}
