// Package har decodes HTTP Archive documents and normalizes their entries
// into RequestRecords. Every per-entry field falls back to a documented
// default; only a document that is not a JSON object is an error.
package har

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/harspectre/internal/models"
)

// ErrDecode matches any *DecodeError via errors.Is.
var ErrDecode = errors.New("har decode failed")

// DecodeError reports a top-level document that is not decodable structured data.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid HAR document: %v", e.Err)
	}
	return fmt.Sprintf("invalid HAR document %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// RawTrace is a decoded but unvalidated HAR document.
type RawTrace struct {
	doc object
}

// Decode reads a whole HAR document from r.
func Decode(r io.Reader) (*RawTrace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HAR document: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a HAR document held in memory.
func DecodeBytes(data []byte) (*RawTrace, error) {
	// Numbers stay json.Number so one out-of-range field falls back to its
	// default instead of failing the whole document.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errors.New("unexpected data after top-level value")}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &DecodeError{Err: fmt.Errorf("expected a JSON object at top level, got %s", jsonKind(doc))}
	}
	return &RawTrace{doc: obj}, nil
}

// Entries returns log.entries. A missing log or entries list yields no entries.
func (t *RawTrace) Entries() []any {
	if t == nil {
		return nil
	}
	return t.doc.child("log").items("entries")
}

// Parse decodes and normalizes a HAR document.
func Parse(r io.Reader) ([]models.RequestRecord, error) {
	trace, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Normalize(trace), nil
}

// ParseFile opens, decodes and normalizes the HAR file at path. The file is
// closed before ParseFile returns.
func ParseFile(path string) ([]models.RequestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Source = path
		}
		return nil, err
	}
	return records, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
