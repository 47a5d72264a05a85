/**
 * @description
 * This file defines the `Repository` interface, the contract for durable
 * transaction storage. The lifecycle manager only ever talks to this
 * interface, so the Postgres-backed store and the local JSON-file store are
 * interchangeable and selected once at bootstrap, never branched on inside
 * business logic.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: Row identities.
 * - internal/domain: The transaction model.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

var (
	// ErrTransactionNotFound is returned when no transaction matches the
	// requested id or code.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrCodeConflict is returned when a create would reuse an existing
	// transaction code.
	ErrCodeConflict = errors.New("transaction code already exists")
)

// Repository defines the set of methods for durable transaction storage.
type Repository interface {
	// CreateTransaction persists a new transaction together with its sender
	// and recipient as one atomic unit: a failure partway through must leave
	// no orphaned party rows behind.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindTransactionByCode(ctx context.Context, code string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	CodeExists(ctx context.Context, code string) (bool, error)
}
