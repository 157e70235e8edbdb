package export

import (
	"encoding/json"
	"io"
)

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
