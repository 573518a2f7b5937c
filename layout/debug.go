package layout

import (
	"encoding/json"
	"io"
	"os"
)

// WriteDebug encodes the result as indented JSON.
func WriteDebug(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteDebugJSON writes the result as JSON to path.
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDebug(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
