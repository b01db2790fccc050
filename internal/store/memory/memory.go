// Package memory is the in-process bill store used by default and by the
// handler tests.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/store"
)

type storedFile struct {
	content     []byte
	contentType string
	email       string
}

type Store struct {
	mu    sync.Mutex
	bills map[string]core.Bill
	order []string
	files map[string]storedFile

	exported map[string]bool

	// Injectable failure for tests exercising the rejection paths.
	Err error
}

func New() *Store {
	return &Store{
		bills:    make(map[string]core.Bill),
		files:    make(map[string]storedFile),
		exported: make(map[string]bool),
	}
}

// Seed preloads bills, assigning keys to records that lack one.
func Seed(bills []core.Bill) *Store {
	s := New()
	for _, b := range bills {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		s.bills[b.ID] = b
		s.order = append(s.order, b.ID)
	}
	return s
}

func (s *Store) List(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]core.Bill, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.bills[id])
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, b core.Bill) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Bill{}, s.Err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.bills[b.ID] = b
	s.order = append(s.order, b.ID)
	return b, nil
}

func (s *Store) Update(_ context.Context, id string, b core.Bill) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Bill{}, s.Err
	}
	if _, ok := s.bills[id]; !ok {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	b.ID = id
	s.bills[id] = b
	return b, nil
}

func (s *Store) CreateFile(_ context.Context, fileName string, content []byte, email string) (store.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return store.FileRef{}, s.Err
	}

	stored := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	s.files[stored] = storedFile{
		content:     content,
		contentType: store.ContentTypeForFile(fileName),
		email:       email,
	}

	draft := core.Bill{
		ID:       uuid.NewString(),
		Email:    email,
		FileURL:  "/bills/files/" + stored,
		FileName: fileName,
	}
	s.bills[draft.ID] = draft
	s.order = append(s.order, draft.ID)

	return store.FileRef{
		BillKey:  draft.ID,
		FileURL:  draft.FileURL,
		FileName: fileName,
	}, nil
}

func (s *Store) GetFile(_ context.Context, name string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	if !ok {
		return nil, "", fmt.Errorf("file %s: %w", name, store.ErrNotFound)
	}
	return f.content, f.contentType, nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListUnexported(_ context.Context, limit int) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bill
	for _, id := range s.order {
		if s.exported[id] {
			continue
		}
		b := s.bills[id]
		if b.Status == "" {
			// Drafts awaiting submit are not exportable.
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	s.exported[id] = true
	return nil
}
