// Package format renders CLI results.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	Text = "text"
	JSON = "json"
	EDN  = "edn"
)

// Texter is implemented by results that have a human-readable rendering.
type Texter interface {
	Text() string
}

// Parse normalizes a format name. Empty means text.
func Parse(name string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(name)); f {
	case "", Text:
		return Text, nil
	case JSON, EDN:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or edn)", name)
	}
}

// Write writes v in the requested format. Values without a text rendering fall back to
// pretty JSON in text mode.
func Write(w io.Writer, v any, format string, pretty bool) error {
	f, err := Parse(format)
	if err != nil {
		return err
	}
	switch f {
	case JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	}
	if t, ok := v.(Texter); ok {
		s := t.Text()
		if s != "" && !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		_, err := io.WriteString(w, s)
		return err
	}
	return WriteJSON(w, v, true)
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
