package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"billed/internal/core"
	"billed/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "billed.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateListRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := core.Bill{
		Email:      "employee@test.tld",
		Name:       "Vol Paris Londres",
		Type:       "Transports",
		Date:       "2023-04-04",
		Amount:     core.Money{Cents: 34800},
		Pct:        20,
		Commentary: "séminaire",
		Status:     core.StatusPending,
	}
	created, err := repo.Create(ctx, b)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create should assign a key")
	}

	bills, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("List returned %d bills, want 1", len(bills))
	}
	got := bills[0]
	if got.Name != b.Name || got.Date != b.Date || got.Amount.Cents != b.Amount.Cents || got.Status != b.Status {
		t.Fatalf("List[0] = %+v", got)
	}
}

func TestUpdateMissingBill(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Update(context.Background(), "missing", core.Bill{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestUploadThenSubmitFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ref, err := repo.CreateFile(ctx, "receipt.jpg", []byte("jpeg-bytes"), "employee@test.tld")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	// The draft holds the file but no usable date yet.
	draft, err := repo.GetBill(ctx, ref.BillKey)
	if err != nil {
		t.Fatalf("GetBill: %v", err)
	}
	if draft.Date != "" || draft.FileURL != ref.FileURL {
		t.Fatalf("draft = %+v", draft)
	}

	name := ref.FileURL[len("/bills/files/"):]
	content, ctype, err := repo.GetFile(ctx, name)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if string(content) != "jpeg-bytes" || ctype != "image/jpeg" {
		t.Fatalf("GetFile = %q %q", content, ctype)
	}

	submitted := draft
	submitted.Name = "Restaurant"
	submitted.Type = "Restaurants et bars"
	submitted.Date = "2023-02-01"
	submitted.Amount = core.Money{Cents: 5600}
	submitted.Status = core.StatusPending
	if _, err := repo.Update(ctx, ref.BillKey, submitted); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetBill(ctx, ref.BillKey)
	if err != nil {
		t.Fatalf("GetBill after update: %v", err)
	}
	if got.Name != "Restaurant" || got.Status != core.StatusPending {
		t.Fatalf("submitted bill = %+v", got)
	}
}

func TestExportTracking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	submitted, _ := repo.Create(ctx, core.Bill{
		Email: "a@b.tld", Name: "Hôtel", Date: "2023-02-01",
		Amount: core.Money{Cents: 10000}, Status: core.StatusPending,
	})
	// A draft with empty status must never be exported.
	repo.CreateFile(ctx, "draft.png", []byte("x"), "a@b.tld")

	pending, err := repo.ListUnexported(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnexported: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != submitted.ID {
		t.Fatalf("ListUnexported = %+v", pending)
	}

	if err := repo.MarkExported(ctx, submitted.ID); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	pending, _ = repo.ListUnexported(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("ListUnexported after mark = %+v", pending)
	}

	// Resubmitting a bill clears its exported mark.
	if _, err := repo.Update(ctx, submitted.ID, submitted); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending, _ = repo.ListUnexported(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("ListUnexported after resubmit = %+v", pending)
	}
}

func TestGetFileMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.GetFile(context.Background(), "nope.png")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetFile missing = %v, want ErrNotFound", err)
	}
}
