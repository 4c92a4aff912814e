package pipeline

import "fmt"

// batchWriter accumulates rows and flushes them to the sink in bulk. The
// pending batch is cleared after each successful flush; a rejected flush
// fails the whole run, there is no partial-batch retry.
type batchWriter struct {
	sink Sink
	max  int
	rows []Row
}

func newBatchWriter(sink Sink, max int) *batchWriter {
	return &batchWriter{sink: sink, max: max, rows: make([]Row, 0, max)}
}

func (w *batchWriter) Add(row Row) error {
	w.rows = append(w.rows, row)
	if len(w.rows) >= w.max {
		return w.Flush()
	}
	return nil
}

// Flush writes the pending batch in one bulk operation. No-op when empty.
func (w *batchWriter) Flush() error {
	if len(w.rows) == 0 {
		return nil
	}
	if err := w.sink.WriteBatch(w.rows); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	w.rows = w.rows[:0]
	return nil
}
