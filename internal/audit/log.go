// Package audit appends one JSON line per scan run. It records run metadata
// and counts, never source text.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/phpguard/phpguard/internal/types"
)

type ScanRecord struct {
	Timestamp      time.Time          `json:"timestamp"`
	ScanID         string             `json:"scan_id"`
	Kind           string             `json:"kind"`
	Target         string             `json:"target"`
	Oracle         string             `json:"oracle,omitempty"`
	Repo           string             `json:"repo,omitempty"`
	Commit         string             `json:"commit,omitempty"`
	Branch         string             `json:"branch,omitempty"`
	FilesChecked   int                `json:"files_checked"`
	SyntaxErrors   int                `json:"syntax_errors"`
	Indicators     int                `json:"indicators"`
	NewIndicators  int                `json:"new_indicators"`
	BaselinedCount int                `json:"baselined_count"`
	SeverityCounts map[string]int     `json:"severity_counts"`
	Duration       string             `json:"duration"`
	TopIndicators  []IndicatorSummary `json:"top_indicators,omitempty"`
}

type IndicatorSummary struct {
	File      string `json:"file,omitempty"`
	Indicator string `json:"indicator"`
	Severity  string `json:"severity"`
	Line      int    `json:"line"`
}

type AuditLog struct {
	logPath string
}

// NewAuditLog stores the log under .git when root is a repository, else as
// .phpguard_audit.jsonl in root.
func NewAuditLog(root string) *AuditLog {
	gitDir := filepath.Join(root, ".git")
	logPath := filepath.Join(root, ".phpguard_audit.jsonl")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		logPath = filepath.Join(gitDir, "phpguard_audit.jsonl")
	}
	return &AuditLog{logPath: logPath}
}

// Path returns the log file location.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns the records newest first. Malformed lines are skipped;
// a missing log yields no records.
func (a *AuditLog) LoadHistory() ([]ScanRecord, error) {
	f, err := os.Open(a.logPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record ScanRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// LogScan appends record, assigning a scan id when it has none.
func (a *AuditLog) LogScan(record ScanRecord) (ScanRecord, error) {
	if record.ScanID == "" {
		record.ScanID = uuid.NewString()
	}

	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return record, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return record, fmt.Errorf("failed to write audit record: %w", err)
	}
	return record, nil
}

// CreateScanRecord summarizes a finished scan. newIndicators are the ones not
// covered by a baseline; pass all indicators when no baseline is in use.
func CreateScanRecord(kind, target string, res types.ScanResult, newIndicators []types.Indicator, duration time.Duration) ScanRecord {
	severityCounts := make(map[string]int)
	for _, ind := range res.Indicators {
		severityCounts[string(ind.Severity)]++
	}

	top := make([]IndicatorSummary, 0, 10)
	for i, ind := range newIndicators {
		if i >= 10 {
			break
		}
		top = append(top, IndicatorSummary{
			File:      ind.File,
			Indicator: ind.Name,
			Severity:  string(ind.Severity),
			Line:      ind.Line,
		})
	}

	return ScanRecord{
		Timestamp:      time.Now().UTC(),
		Kind:           kind,
		Target:         target,
		FilesChecked:   res.FilesChecked,
		SyntaxErrors:   len(res.Errors),
		Indicators:     len(res.Indicators),
		NewIndicators:  len(newIndicators),
		BaselinedCount: len(res.Indicators) - len(newIndicators),
		SeverityCounts: severityCounts,
		Duration:       duration.String(),
		TopIndicators:  top,
	}
}
