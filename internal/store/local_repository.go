/**
 * @description
 * This file provides a JSON-file-backed implementation of the `Repository`
 * interface, used for offline and demo deployments where no database is
 * available. The whole transaction set is held in memory and rewritten to
 * disk on every mutation, which is acceptable at back-office volumes.
 *
 * @notes
 * - All methods are mutex-guarded; the file is written atomically via a
 *   temp file plus rename so a crash mid-write never truncates the store.
 *   A failed write rolls the in-memory change back, keeping memory and
 *   disk consistent.
 * - Returned transactions are copies; callers can mutate them freely.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

// LocalRepository is a file-backed Repository for offline/demo mode.
type LocalRepository struct {
	mu           sync.Mutex
	path         string
	transactions map[uuid.UUID]domain.Transaction
}

// NewLocalRepository opens (or creates) the JSON store at path and loads the
// existing transaction set into memory.
func NewLocalRepository(path string) (*LocalRepository, error) {
	repo := &LocalRepository{
		path:         path,
		transactions: make(map[uuid.UUID]domain.Transaction),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return repo, nil
		}
		return nil, fmt.Errorf("failed to read local store %s: %w", path, err)
	}
	if len(data) == 0 {
		return repo, nil
	}

	var records []domain.Transaction
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse local store %s: %w", path, err)
	}
	for _, tx := range records {
		repo.transactions[tx.ID] = tx
	}
	return repo, nil
}

// persist must be called with the mutex held.
func (l *LocalRepository) persist() error {
	records := make([]domain.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		records = append(records, tx)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// CreateTransaction stores a new record; the sender and recipient travel
// inside the record, so creation here is trivially atomic.
func (l *LocalRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.transactions {
		if strings.EqualFold(existing.Code, tx.Code) {
			return ErrCodeConflict
		}
	}
	l.transactions[tx.ID] = *tx
	if err := l.persist(); err != nil {
		delete(l.transactions, tx.ID)
		return err
	}
	return nil
}

// FindTransactionByID returns a copy of the matching record.
func (l *LocalRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &tx, nil
}

// FindTransactionByCode returns a copy of the record with the given code.
func (l *LocalRepository) FindTransactionByCode(ctx context.Context, code string) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, tx := range l.transactions {
		if strings.EqualFold(tx.Code, code) {
			out := tx
			return &out, nil
		}
	}
	return nil, ErrTransactionNotFound
}

// ListTransactions returns the full set, newest first.
func (l *LocalRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]domain.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		records = append(records, tx)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// UpdateTransaction replaces an existing record.
func (l *LocalRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.transactions[tx.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	l.transactions[tx.ID] = *tx
	if err := l.persist(); err != nil {
		l.transactions[tx.ID] = prev
		return err
	}
	return nil
}

// DeleteTransaction removes a record entirely.
func (l *LocalRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.transactions[id]
	if !ok {
		return ErrTransactionNotFound
	}
	delete(l.transactions, id)
	if err := l.persist(); err != nil {
		l.transactions[id] = prev
		return err
	}
	return nil
}

// CodeExists reports whether any stored transaction uses the given code.
func (l *LocalRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, tx := range l.transactions {
		if strings.EqualFold(tx.Code, code) {
			return true, nil
		}
	}
	return false, nil
}
