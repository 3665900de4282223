package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// response is the standard JSON envelope for CLI output.
type response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// emitJSON writes the success envelope as indented JSON.
func emitJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response{Status: "ok", Data: data})
}

// emitError writes an error in the selected format and returns it so
// the command still exits non-zero.
func emitError(w io.Writer, format string, err error) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(response{Status: "error", Error: err.Error()})
		return err
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return err
}
