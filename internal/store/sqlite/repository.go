// Package sqlite is the persistent bill store backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"billed/internal/core"
	"billed/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const billColumns = "id, email, name, type, date, amount_cents, pct, commentary, file_url, file_name, status"

func scanBill(row interface{ Scan(...any) error }) (core.Bill, error) {
	var b core.Bill
	err := row.Scan(&b.ID, &b.Email, &b.Name, &b.Type, &b.Date, &b.Amount.Cents,
		&b.Pct, &b.Commentary, &b.FileURL, &b.FileName, &b.Status)
	return b, err
}

// List implements store.BillStore.
func (r *Repository) List(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

// Create implements store.BillStore.
func (r *Repository) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Email, b.Name, b.Type, b.Date, b.Amount.Cents,
		b.Pct, b.Commentary, b.FileURL, b.FileName, b.Status, time.Now().UTC())
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved", "bill_id", b.ID, "bill_name", b.Name, "status", b.Status)
	return b, nil
}

// Update implements store.BillStore.
func (r *Repository) Update(ctx context.Context, id string, b core.Bill) (core.Bill, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET email=?, name=?, type=?, date=?, amount_cents=?, pct=?,
		 commentary=?, file_url=?, file_name=?, status=?, exported_at=NULL WHERE id=?`,
		b.Email, b.Name, b.Type, b.Date, b.Amount.Cents, b.Pct,
		b.Commentary, b.FileURL, b.FileName, b.Status, id)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	b.ID = id
	return b, nil
}

// CreateFile implements store.BillStore: it stores the proof file and opens
// a draft bill referencing it.
func (r *Repository) CreateFile(ctx context.Context, fileName string, content []byte, email string) (store.FileRef, error) {
	stored := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	contentType := store.ContentTypeForFile(fileName)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.FileRef{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (name, content, content_type, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		stored, content, contentType, email, time.Now().UTC()); err != nil {
		return store.FileRef{}, fmt.Errorf("store file: %w", err)
	}

	ref := store.FileRef{
		BillKey:  uuid.NewString(),
		FileURL:  "/bills/files/" + stored,
		FileName: fileName,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`, created_at)
		 VALUES (?, ?, '', '', '', 0, 0, '', ?, ?, '', ?)`,
		ref.BillKey, email, ref.FileURL, fileName, time.Now().UTC()); err != nil {
		return store.FileRef{}, fmt.Errorf("open draft bill: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.FileRef{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Proof file stored", "file_name", fileName, "stored_as", stored, "email", email)
	return ref, nil
}

// GetFile implements store.BillStore.
func (r *Repository) GetFile(ctx context.Context, name string) ([]byte, string, error) {
	var content []byte
	var contentType string
	err := r.db.QueryRowContext(ctx,
		"SELECT content, content_type FROM files WHERE name = ?", name).
		Scan(&content, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("file %s: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	return content, contentType, nil
}

// GetBill implements store.BillReader.
func (r *Repository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	b, err := scanBill(r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

// ListUnexported implements store.ExportTracker. Drafts that were never
// submitted carry an empty status and are skipped.
func (r *Repository) ListUnexported(ctx context.Context, limit int) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE exported_at IS NULL AND status != ''
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// MarkExported implements store.ExportTracker.
func (r *Repository) MarkExported(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bills SET exported_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	return nil
}
