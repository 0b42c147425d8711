package history

import "errors"

// MultiWriter fans flight rows out to multiple writers.
type MultiWriter struct {
	writers []FlightWriter
}

// NewMultiWriter combines writers into one. Nil writers are skipped.
func NewMultiWriter(writers ...FlightWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Write forwards a row to every writer, collecting errors.
func (m *MultiWriter) Write(row FlightRow) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch forwards rows to every writer, using batch mode when supported.
func (m *MultiWriter) WriteBatch(rows []FlightRow) error {
	var errs []error
	for _, w := range m.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
