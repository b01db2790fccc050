// Package store defines the ports for the bill store backends.
package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"billed/internal/core"
)

var (
	// ErrNotFound is returned when a bill or stored file does not exist.
	ErrNotFound = errors.New("not found")
)

// FileRef is what a successful proof upload yields: the key of the draft
// bill holding the file, plus the stored file's URL and name. The submit
// step updates that draft with the form fields.
type FileRef struct {
	BillKey  string
	FileURL  string
	FileName string
}

type (
	// BillStore is the resource-oriented backend for the bills resource.
	BillStore interface {
		// List returns the raw bill records. Records may carry malformed or
		// absent dates; callers normalize defensively.
		List(ctx context.Context) ([]core.Bill, error)

		// Create persists a new bill and returns it with its assigned key.
		Create(ctx context.Context, b core.Bill) (core.Bill, error)

		// Update replaces the stored bill identified by id.
		Update(ctx context.Context, id string, b core.Bill) (core.Bill, error)

		// CreateFile stores an uploaded proof file and opens a draft bill
		// owned by email that references it.
		CreateFile(ctx context.Context, fileName string, content []byte, email string) (FileRef, error)

		// GetFile returns a stored proof file's bytes and content type.
		GetFile(ctx context.Context, name string) ([]byte, string, error)
	}

	// BillReader is the subset the export worker needs to load single bills.
	BillReader interface {
		GetBill(ctx context.Context, id string) (core.Bill, error)
	}

	// ExportTracker lets the worker find and mark bills pending export.
	ExportTracker interface {
		ListUnexported(ctx context.Context, limit int) ([]core.Bill, error)
		MarkExported(ctx context.Context, id string) error
	}
)

// ContentTypeForFile maps an accepted proof extension to its MIME type.
func ContentTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
