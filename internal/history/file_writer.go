package history

import (
	"encoding/json"
	"os"
)

// FileWriter appends flight rows to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (truncating) the history file at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one flight row.
func (w *FileWriter) Write(row FlightRow) error {
	return w.enc.Encode(row)
}

// WriteBatch appends multiple flight rows.
func (w *FileWriter) WriteBatch(rows []FlightRow) error {
	for _, r := range rows {
		if err := w.enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *FileWriter) Close() error {
	return w.file.Close()
}
