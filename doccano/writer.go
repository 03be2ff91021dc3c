package doccano

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// Writer writes records to a destination.
type Writer interface {
	Write(record Record) error
	Close() error
}

// Format of the output files.
type Format int

const (
	JSONL Format = iota
	Parquet
)

// ParseFormat parses "jsonl" or "parquet".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "jsonl":
		return JSONL, nil
	case "parquet":
		return Parquet, nil
	}
	return 0, errors.Wrapf(ErrInvalidOption, "output format %q, valid values are \"jsonl\" and \"parquet\"", s)
}

// String returns the value parsed by ParseFormat, also used as file extension.
func (f Format) String() string {
	if f == Parquet {
		return "parquet"
	}
	return "jsonl"
}

// FileName returns the output file name for the split.
func (f Format) FileName(split string) string {
	return split + "." + f.String()
}

// NewWriter returns a Writer in the given format writing to w.
// Closing the Writer closes w if it implements io.Closer.
func NewWriter(w io.Writer, format Format) Writer {
	if format == Parquet {
		return NewParquetWriter(w)
	}
	return NewJSONLWriter(w)
}

// Create creates (or truncates) the file at path and returns a Writer in the given format.
func Create(path string, format Format) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %q", path)
	}
	return NewWriter(f, format), nil
}

// JSONLWriter writes one JSON object per line, with non-ASCII characters left as is.
type JSONLWriter struct {
	buf     *bufio.Writer
	encoder *json.Encoder
	closer  io.Closer
}

var _ Writer = &JSONLWriter{}

// NewJSONLWriter returns a JSONLWriter writing to w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	buf := bufio.NewWriter(w)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	jw := &JSONLWriter{buf: buf, encoder: encoder}
	jw.closer, _ = w.(io.Closer)
	return jw
}

// Write implements Writer.
func (jw *JSONLWriter) Write(record Record) error {
	return errors.Wrapf(jw.encoder.Encode(record), "writing record %d", record.ID)
}

// Close flushes the buffered records and closes the underlying writer.
func (jw *JSONLWriter) Close() error {
	err := jw.buf.Flush()
	if jw.closer != nil {
		if closeErr := jw.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return errors.Wrap(err, "closing JSON-lines writer")
}

// ParquetWriter writes records as rows of a Parquet file.
type ParquetWriter struct {
	writer *parquet.GenericWriter[Record]
	closer io.Closer
}

var _ Writer = &ParquetWriter{}

// NewParquetWriter returns a ParquetWriter writing to w.
func NewParquetWriter(w io.Writer) *ParquetWriter {
	pw := &ParquetWriter{writer: parquet.NewGenericWriter[Record](w)}
	pw.closer, _ = w.(io.Closer)
	return pw
}

// Write implements Writer.
func (pw *ParquetWriter) Write(record Record) error {
	_, err := pw.writer.Write([]Record{record})
	return errors.Wrapf(err, "writing record %d", record.ID)
}

// Close writes the Parquet footer and closes the underlying writer.
func (pw *ParquetWriter) Close() error {
	err := pw.writer.Close()
	if pw.closer != nil {
		if closeErr := pw.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return errors.Wrap(err, "closing Parquet writer")
}
