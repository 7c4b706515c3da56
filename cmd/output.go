package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrintOutput renders data to stdout in the requested format. Commands with
// a richer text rendering (tables, colored reports) handle "text" themselves
// and only reach the fallback here for plain values.
func PrintOutput(format string, data interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		err := enc.Encode(data)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
		return err
	case "text":
		fmt.Printf("%+v\n", data)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
