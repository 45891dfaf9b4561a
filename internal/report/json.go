package report

import (
	"encoding/json"
	"io"

	"github.com/phpguard/phpguard/internal/types"
)

// WriteJSON writes res in its serialized shape. Empty lists are written as []
// rather than null.
func WriteJSON(w io.Writer, res types.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Normalize())
}
