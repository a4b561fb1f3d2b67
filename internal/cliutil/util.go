package cliutil

import (
	"fmt"
	"io"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatYAML, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatYAML
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func PrintYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func Print(w io.Writer, format string, v any) error {
	if ParseOutputFormat(format) == FormatJSON {
		return PrintJSON(w, v)
	}
	return PrintYAML(w, v)
}

// ResolvePath makes a relative path from the job file relative to the job
// file's directory. "-" and absolute paths are returned as-is.
func ResolvePath(jobFile, path string) string {
	if path == "" || path == "-" || filepath.IsAbs(path) || jobFile == "" {
		return path
	}
	return filepath.Join(filepath.Dir(jobFile), path)
}
