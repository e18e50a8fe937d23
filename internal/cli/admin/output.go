package admin

import (
	"encoding/json"
	"os"
)

// printJSON renders v as indented JSON on stdout for --output json.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
