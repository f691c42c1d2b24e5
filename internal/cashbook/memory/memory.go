// Package memory is an in-process cash book, used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"madrasa/internal/cashbook"
)

type Book struct {
	mu      sync.Mutex
	entries []cashbook.Entry
	failing bool
}

func New() *Book {
	return &Book{}
}

// Append stores the entry and returns a synthetic line reference.
func (b *Book) Append(_ context.Context, e cashbook.Entry) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return "", fmt.Errorf("cash book unavailable")
	}
	b.entries = append(b.entries, e)
	return fmt.Sprintf("mem:%d", len(b.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (b *Book) Entries() []cashbook.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]cashbook.Entry(nil), b.entries...)
}

// SetFailing makes subsequent appends fail. Test hook.
func (b *Book) SetFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}
