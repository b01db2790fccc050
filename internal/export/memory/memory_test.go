package memory

import (
	"context"
	"errors"
	"testing"

	"billed/internal/core"
)

func TestRecorder_AppendBill(t *testing.T) {
	rec := New()

	ref, err := rec.AppendBill(context.Background(), core.Bill{Name: "Vol Paris Londres"})
	if err != nil {
		t.Fatalf("AppendBill: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := rec.Rows()
	if len(rows) != 1 || rows[0].Name != "Vol Paris Londres" {
		t.Fatalf("Rows() = %v", rows)
	}
}

func TestRecorder_InjectedError(t *testing.T) {
	rec := New()
	rec.Err = errors.New("spreadsheet unavailable")

	if _, err := rec.AppendBill(context.Background(), core.Bill{}); err == nil {
		t.Fatal("expected injected error")
	}
	if len(rec.Rows()) != 0 {
		t.Fatal("nothing should be recorded on failure")
	}
}
