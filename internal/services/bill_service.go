// Package services orchestrates bill writes across the store and the
// export queue.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"billed/internal/core"
	"billed/internal/store"
)

// ExportPublisher announces accepted bill writes to the export worker.
type ExportPublisher interface {
	PublishBillExport(ctx context.Context, billID string) error
}

// BillService wraps a bill store so every successful create/update also
// publishes an export message. Publishing is best effort: the bill is
// already saved, so a broker failure never fails the request.
type BillService struct {
	store.BillStore
	publisher ExportPublisher
}

func NewBillService(st store.BillStore, publisher ExportPublisher) *BillService {
	return &BillService{BillStore: st, publisher: publisher}
}

func (s *BillService) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	created, err := s.BillStore.Create(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	s.publish(ctx, created.ID)
	return created, nil
}

func (s *BillService) Update(ctx context.Context, id string, b core.Bill) (core.Bill, error) {
	updated, err := s.BillStore.Update(ctx, id, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}
	s.publish(ctx, updated.ID)
	return updated, nil
}

func (s *BillService) publish(ctx context.Context, billID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBillExport(ctx, billID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish bill export message",
			"bill_id", billID, "error", err)
	}
}

// Close releases the underlying store when it owns resources.
func (s *BillService) Close() error {
	if closer, ok := s.BillStore.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
