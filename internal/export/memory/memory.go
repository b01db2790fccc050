// Package memory records exported bills in process memory. It stands in
// for the Google spreadsheet in tests and backendless development runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"billed/internal/core"
	"billed/internal/export"
)

type Recorder struct {
	mu   sync.Mutex
	rows []core.Bill

	// Err, when set, fails every append.
	Err error
}

var _ export.RowAppender = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{}
}

// AppendBill stores the bill and returns a synthetic row reference.
func (r *Recorder) AppendBill(_ context.Context, b core.Bill) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	r.rows = append(r.rows, b)
	return fmt.Sprintf("mem:%d", len(r.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (r *Recorder) Rows() []core.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Bill, len(r.rows))
	copy(out, r.rows)
	return out
}
