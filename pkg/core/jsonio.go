package core

import (
	"encoding/json"
	"io"

	"github.com/phpguard/phpguard/internal/report"
)

// MarshalResult pretty-prints a result in the report JSON shape.
func MarshalResult(w io.Writer, res ScanResult) error {
	return report.WriteJSON(w, res)
}

// UnmarshalResult decodes report JSON, useful for ingestion tests.
func UnmarshalResult(r io.Reader) (ScanResult, error) {
	var res ScanResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return res, err
	}
	return res.Normalize(), nil
}
