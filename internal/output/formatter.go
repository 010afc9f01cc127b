// Package output renders plugin listings in the supported formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spinframework/spin-cli/internal/plugin"
)

// Formatter renders a descriptor listing to the given writer.
type Formatter interface {
	// Format writes the descriptors to w in the formatter's format.
	Format(w io.Writer, descriptors []plugin.Descriptor) error
}

// NewFormatter returns a Formatter for the given format name.
// Supported formats: "plain", "json", "table".
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "plain":
		return &PlainFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "table":
		return &TableFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q (supported: plain, json, table)", format)
	}
}

// PlainFormatter prints one line per descriptor:
//
//	<name> <version>[ [installed]][ [requires Spin <range>]][ [incompatible]]
type PlainFormatter struct{}

func (f *PlainFormatter) Format(w io.Writer, descriptors []plugin.Descriptor) error {
	if len(descriptors) == 0 {
		_, err := fmt.Fprintln(w, "No plugins found")
		return err
	}
	for _, d := range descriptors {
		line := d.Name + " " + d.Version
		if d.Installed {
			line += " [installed]"
		}
		switch d.Compatibility.Kind {
		case plugin.IncompatibleSpin:
			line += fmt.Sprintf(" [requires Spin %s]", d.Compatibility.RequiredSpin)
		case plugin.IncompatiblePlatform:
			line += " [incompatible]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter emits the listing as a JSON array.
type JSONFormatter struct{}

type jsonEntry struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Installed     bool   `json:"installed"`
	Compatibility string `json:"compatibility"`
	RequiresSpin  string `json:"requiresSpin,omitempty"`
}

func (f *JSONFormatter) Format(w io.Writer, descriptors []plugin.Descriptor) error {
	entries := make([]jsonEntry, 0, len(descriptors))
	for _, d := range descriptors {
		entries = append(entries, jsonEntry{
			Name:          d.Name,
			Version:       d.Version,
			Installed:     d.Installed,
			Compatibility: compatibilityLabel(d.Compatibility),
			RequiresSpin:  d.Compatibility.RequiredSpin,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func compatibilityLabel(c plugin.Compatibility) string {
	switch c.Kind {
	case plugin.Compatible:
		return "compatible"
	case plugin.IncompatibleSpin:
		return "incompatible-spin-version"
	default:
		return "incompatible-platform"
	}
}
