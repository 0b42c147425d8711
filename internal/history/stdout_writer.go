// Writer implementation printing flight history to STDOUT.
package history

import (
	"encoding/json"
	"fmt"
)

// StdoutWriter prints flight rows to STDOUT as JSON lines.
type StdoutWriter struct{}

// Write outputs a single flight row.
func (w *StdoutWriter) Write(row FlightRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple flight rows.
func (w *StdoutWriter) WriteBatch(rows []FlightRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}
