// Package records serializes a FAIRsharing record page and writes it to disk.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const indent = "    "

// Encode renders records as indented JSON with object keys sorted at every
// level. Array order is kept as received. The output has no trailing newline.
//
// Every non-ASCII character is written as a \uXXXX escape. Integers keep all
// their digits; fractional and exponent numbers are written as the shortest
// float that round-trips (1.50 as 1.5, 1E5 as 100000.0).
func Encode(records []any) ([]byte, error) {
	if records == nil {
		records = []any{}
	}

	canonical, err := canonicalize(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	// encoding/json emits map keys in sorted order.
	if err := enc.Encode(canonical); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Writer persists record pages onto a filesystem.
type Writer struct {
	logger *zap.Logger
	fs     afero.Fs
}

// NewWriter constructs a Writer over fs.
func NewWriter(logger *zap.Logger, fs afero.Fs) *Writer {
	return &Writer{logger: logger, fs: fs}
}

// Write encodes records and replaces the contents of path. Encoding happens
// before the file is touched, so an encoding failure leaves any existing file
// unchanged. The parent directory must already exist.
func (w *Writer) Write(path string, records []any) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(w.fs, path, data, 0o644); err != nil {
		w.logger.Error("records.write_failed",
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.Info("records.written",
		zap.String("path", path),
		zap.Int("count", len(records)),
		zap.Int("bytes", len(data)))
	return nil
}
