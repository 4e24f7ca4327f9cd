// Package snapshot reads and writes the JSON and text artifacts of a check.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

const fileTimestampLayout = "2006-01-02T15-04-05Z"

// MalformedSnapshotError reports a previous snapshot that is not valid JSON.
type MalformedSnapshotError struct {
	Path string
	Err  error
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("malformed snapshot %s: %v", e.Path, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }

// PathFor returns the timestamp-named snapshot path inside dir.
func PathFor(dir string, t time.Time) string {
	return filepath.Join(dir, t.UTC().Format(fileTimestampLayout)+".json")
}

// Encode renders v as indented JSON with every non-ASCII character escaped
// and a trailing newline. Object keys follow struct field order, so callers
// declare fields alphabetically.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return escapeNonASCII(buf.Bytes()), nil
}

func escapeNonASCII(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		in = in[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

// WriteJSON encodes v and writes it to path, creating parent directories and
// replacing any existing file.
func WriteJSON(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteText writes s to path as UTF-8, creating parent directories.
func WriteText(path, s string) error {
	return writeFile(path, []byte(s))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadTitles reads the titles of a previous snapshot. A missing file, or a
// missing or non-list titles field, yields an empty list.
func LoadTitles(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &MalformedSnapshotError{Path: path, Err: err}
	}
	if dec.More() {
		return nil, &MalformedSnapshotError{Path: path, Err: errors.New("trailing data after snapshot object")}
	}

	list, ok := doc["titles"].([]any)
	if !ok {
		return []string{}, nil
	}

	titles := make([]string, 0, len(list))
	for _, item := range list {
		titles = append(titles, textOf(item))
	}
	return titles, nil
}

// textOf renders a decoded JSON value as text the way the snapshot
// consumers have always seen it.
func textOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
