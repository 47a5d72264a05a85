/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It owns all SQL for the `transactions`, `senders` and
 * `recipients` tables.
 *
 * Key behaviors:
 * - CreateTransaction wraps the sender, recipient and transaction inserts in
 *   a single database transaction, so a failure partway through rolls back
 *   the party rows too.
 * - A unique index on transactions.code is mapped to ErrCodeConflict via the
 *   Postgres 23505 error code.
 * - Monetary columns are NUMERIC; they travel as text and are converted to
 *   decimal.Decimal at the boundary.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Monetary values.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const transactionColumns = `
	t.id, t.code, t.direction, t.amount::text, t.receiving_amount::text, t.currency,
	t.commission_percent::text, t.commission_amount::text, t.payment_method, t.mobile_network,
	t.status, t.notes, t.created_by, t.validated_by, t.validated_at, t.created_at, t.updated_at,
	s.name, s.phone, s.id_doc_type, s.id_doc_number,
	r.name, r.phone, r.id_doc_type, r.id_doc_number`

const transactionFrom = `
	FROM transactions t
	JOIN senders s ON s.id = t.sender_id
	JOIN recipients r ON r.id = t.recipient_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx                                              domain.Transaction
		amount, receiving, commissionPct, commissionAmt string
	)
	err := row.Scan(
		&tx.ID, &tx.Code, &tx.Direction, &amount, &receiving, &tx.Currency,
		&commissionPct, &commissionAmt, &tx.Method, &tx.MobileNetwork,
		&tx.Status, &tx.Notes, &tx.CreatedBy, &tx.ValidatedBy, &tx.ValidatedAt, &tx.CreatedAt, &tx.UpdatedAt,
		&tx.Sender.Name, &tx.Sender.Phone, &tx.Sender.IDDocType, &tx.Sender.IDDocNumber,
		&tx.Recipient.Name, &tx.Recipient.Phone, &tx.Recipient.IDDocType, &tx.Recipient.IDDocNumber,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for transaction %s: %w", tx.ID, err)
	}
	if tx.ReceivingAmount, err = decimal.NewFromString(receiving); err != nil {
		return nil, fmt.Errorf("invalid receiving amount for transaction %s: %w", tx.ID, err)
	}
	if tx.CommissionPercent, err = decimal.NewFromString(commissionPct); err != nil {
		return nil, fmt.Errorf("invalid commission percent for transaction %s: %w", tx.ID, err)
	}
	if tx.CommissionAmount, err = decimal.NewFromString(commissionAmt); err != nil {
		return nil, fmt.Errorf("invalid commission amount for transaction %s: %w", tx.ID, err)
	}
	return &tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateTransaction inserts the sender, recipient and transaction rows inside
// one database transaction.
func (p *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	senderID := uuid.New()
	recipientID := uuid.New()

	const insertParty = `INSERT INTO %s (id, name, phone, id_doc_type, id_doc_number, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = dbTx.Exec(ctx, fmt.Sprintf(insertParty, "senders"),
		senderID, tx.Sender.Name, tx.Sender.Phone, tx.Sender.IDDocType, tx.Sender.IDDocNumber, tx.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert sender: %w", err)
	}
	if _, err = dbTx.Exec(ctx, fmt.Sprintf(insertParty, "recipients"),
		recipientID, tx.Recipient.Name, tx.Recipient.Phone, tx.Recipient.IDDocType, tx.Recipient.IDDocNumber, tx.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert recipient: %w", err)
	}

	const insertTransaction = `
		INSERT INTO transactions (
			id, code, direction, amount, receiving_amount, currency,
			commission_percent, commission_amount, payment_method, mobile_network,
			status, sender_id, recipient_id, notes, created_by,
			validated_by, validated_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)`
	_, err = dbTx.Exec(ctx, insertTransaction,
		tx.ID, tx.Code, tx.Direction,
		tx.Amount.String(), tx.ReceivingAmount.String(), tx.Currency,
		tx.CommissionPercent.String(), tx.CommissionAmount.String(), tx.Method, tx.MobileNetwork,
		tx.Status, senderID, recipientID, tx.Notes, tx.CreatedBy,
		tx.ValidatedBy, tx.ValidatedAt, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeConflict
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err = dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindTransactionByID retrieves one transaction with its parties.
func (p *PostgresRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := "SELECT" + transactionColumns + transactionFrom + " WHERE t.id = $1"
	tx, err := scanTransaction(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// FindTransactionByCode retrieves one transaction by its public code.
func (p *PostgresRepository) FindTransactionByCode(ctx context.Context, code string) (*domain.Transaction, error) {
	query := "SELECT" + transactionColumns + transactionFrom + " WHERE t.code = $1"
	tx, err := scanTransaction(p.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns the full transaction set, newest first.
func (p *PostgresRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := "SELECT" + transactionColumns + transactionFrom + " ORDER BY t.created_at DESC"
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// UpdateTransaction persists mutable lifecycle fields of an existing record.
func (p *PostgresRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		UPDATE transactions
		SET status = $2, notes = $3, validated_by = $4, validated_at = $5, updated_at = $6
		WHERE id = $1`
	tag, err := p.db.Exec(ctx, query, tx.ID, tx.Status, tx.Notes, tx.ValidatedBy, tx.ValidatedAt, tx.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// DeleteTransaction removes the transaction and its party rows atomically.
func (p *PostgresRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	dbTx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var senderID, recipientID uuid.UUID
	err = dbTx.QueryRow(ctx, "SELECT sender_id, recipient_id FROM transactions WHERE id = $1", id).Scan(&senderID, &recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return err
	}

	if _, err = dbTx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id); err != nil {
		return err
	}
	if _, err = dbTx.Exec(ctx, "DELETE FROM senders WHERE id = $1", senderID); err != nil {
		return err
	}
	if _, err = dbTx.Exec(ctx, "DELETE FROM recipients WHERE id = $1", recipientID); err != nil {
		return err
	}

	return dbTx.Commit(ctx)
}

// CodeExists reports whether any transaction already uses the given code.
func (p *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE code = $1)", code).Scan(&exists)
	return exists, err
}
