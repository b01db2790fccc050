package export

import (
	"context"

	"billed/internal/core"
)

// RowAppender is the outbound port for the bill export destination.
type RowAppender interface {
	// AppendBill writes one bill as a row and returns a reference to it.
	AppendBill(ctx context.Context, b core.Bill) (rowRef string, err error)
}
