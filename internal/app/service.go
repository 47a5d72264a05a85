/**
 * @description
 * This file contains the transaction lifecycle manager. The `Service` struct
 * is the single gatekeeper for every mutation of the transaction set: it
 * enforces role permissions and status transitions, computes audit side
 * effects, recomputes aggregate statistics by full scan after each change,
 * and fans change notifications out on the in-process bus and the broker.
 *
 * Transition policy:
 * - validate: pending -> validated only.
 * - complete: pending or validated -> completed (direct completion without a
 *   prior validation is allowed for same-counter payouts).
 * - cancel:   pending or validated -> cancelled.
 * - completed and cancelled are terminal; nothing moves a record out of them
 *   short of an admin delete, which bypasses the state machine entirely.
 *
 * Business rejections (wrong role, unknown id, illegal transition) come back
 * as a ReviewResult with Success=false; only storage failures are errors.
 *
 * @dependencies
 * - internal/domain, internal/notify, internal/stats, internal/store.
 * - pkg/rabbitmq: Broker fan-out of change events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenelnobles/transaction-service/internal/domain"
	"github.com/goldenelnobles/transaction-service/internal/notify"
	"github.com/goldenelnobles/transaction-service/internal/stats"
	"github.com/goldenelnobles/transaction-service/internal/store"
	"github.com/goldenelnobles/transaction-service/pkg/rabbitmq"
)

var (
	// ErrPermissionDenied is returned when an actor's role does not allow
	// creating transactions.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidDraft wraps all draft validation failures on create.
	ErrInvalidDraft = errors.New("invalid transaction draft")
)

var oneHundred = decimal.NewFromInt(100)

// Service is the transaction lifecycle manager.
type Service struct {
	repo     store.Repository
	bus      *notify.Bus
	producer rabbitmq.Publisher
}

// NewService creates a new lifecycle manager instance.
func NewService(repo store.Repository, bus *notify.Bus, producer rabbitmq.Publisher) *Service {
	return &Service{repo: repo, bus: bus, producer: producer}
}

// Create validates the draft, assigns a unique code, forces pending status,
// persists the record atomically and notifies subscribers. Roles admin,
// supervisor and operator may create; auditors are read-only.
func (s *Service) Create(ctx context.Context, actor domain.Actor, draft domain.TransactionDraft) (*domain.Transaction, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor, domain.RoleOperator:
	default:
		return nil, fmt.Errorf("%w: role %q cannot create transactions", ErrPermissionDenied, actor.Role)
	}

	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(draft.Code))
	if ValidCode(code) {
		taken, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check code availability: %w", err)
		}
		if taken {
			return nil, store.ErrCodeConflict
		}
	} else {
		generated, err := GenerateCode(ctx, s.repo.CodeExists)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := time.Now().UTC()
	receiving := draft.ReceivingAmount
	if receiving.IsZero() {
		receiving = draft.Amount
	}

	tx := &domain.Transaction{
		ID:                uuid.New(),
		Code:              code,
		Direction:         draft.Direction,
		Amount:            draft.Amount,
		ReceivingAmount:   receiving,
		Currency:          draft.Currency,
		CommissionPercent: draft.CommissionPercent,
		CommissionAmount:  draft.Amount.Mul(draft.CommissionPercent).Div(oneHundred),
		Method:            draft.Method,
		MobileNetwork:     draft.MobileNetwork,
		Status:            domain.StatusPending, // forced regardless of caller input
		Sender:            draft.Sender,
		Recipient:         draft.Recipient,
		Notes:             draft.Notes,
		CreatedBy:         actor.Name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	snapshot := s.refreshStats(ctx)
	s.bus.Publish(notify.Event{Channel: notify.ChannelCreated, Transaction: tx, Stats: snapshot})
	s.publishChange(ctx, "created", tx)
	return tx, nil
}

// Review applies a lifecycle action (validate, complete, cancel) to the
// identified transaction on behalf of the actor. All authorization and
// transition checks live here; callers never pre-filter.
func (s *Service) Review(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (*domain.ReviewResult, error) {
	if !action.Valid() {
		return &domain.ReviewResult{Success: false, Message: fmt.Sprintf("unknown action %q", action)}, nil
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSupervisor {
		return &domain.ReviewResult{
			Success: false,
			Message: fmt.Sprintf("role %q is not allowed to %s transactions", actor.Role, action),
		}, nil
	}

	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return &domain.ReviewResult{Success: false, Message: fmt.Sprintf("transaction %s was not found", id)}, nil
		}
		return nil, err
	}

	if msg, ok := transitionAllowed(tx, action); !ok {
		return &domain.ReviewResult{Success: false, Message: msg, Transaction: tx}, nil
	}

	now := time.Now().UTC()
	switch action {
	case domain.ActionValidate:
		tx.Status = domain.StatusValidated
		if tx.ValidatedBy == nil {
			name := actor.Name
			tx.ValidatedBy = &name
			tx.ValidatedAt = &now
		}
	case domain.ActionComplete:
		tx.Status = domain.StatusCompleted
		if tx.ValidatedBy == nil {
			name := actor.Name
			tx.ValidatedBy = &name
			tx.ValidatedAt = &now
		}
	case domain.ActionCancel:
		tx.Status = domain.StatusCancelled
		// A cancellation always records who pulled the trigger, even when the
		// record had been validated by someone else earlier.
		name := actor.Name
		tx.ValidatedBy = &name
		tx.ValidatedAt = &now
	}
	tx.UpdatedAt = now

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	snapshot := s.refreshStats(ctx)
	s.bus.Publish(notify.Event{Channel: actionChannel(action), Transaction: tx, Stats: snapshot})
	s.bus.Publish(notify.Event{Channel: notify.ChannelUpdated, Transaction: tx, Stats: snapshot})
	s.publishChange(ctx, "updated", tx)

	return &domain.ReviewResult{
		Success:     true,
		Message:     fmt.Sprintf("transaction %s %s", tx.Code, tx.Status),
		Transaction: tx,
		Stats:       snapshot,
	}, nil
}

// Delete removes a transaction entirely, bypassing the state machine. Only
// admins may delete; the check lives here, not in the transport layer.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ReviewResult, error) {
	if actor.Role != domain.RoleAdmin {
		return &domain.ReviewResult{
			Success: false,
			Message: fmt.Sprintf("role %q is not allowed to delete transactions", actor.Role),
		}, nil
	}

	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return &domain.ReviewResult{Success: false, Message: fmt.Sprintf("transaction %s was not found", id)}, nil
		}
		return nil, err
	}

	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return nil, err
	}

	snapshot := s.refreshStats(ctx)
	s.bus.Publish(notify.Event{Channel: notify.ChannelDeleted, Transaction: tx, Stats: snapshot})
	s.publishChange(ctx, "deleted", tx)

	return &domain.ReviewResult{
		Success:     true,
		Message:     fmt.Sprintf("transaction %s deleted", tx.Code),
		Transaction: tx,
		Stats:       snapshot,
	}, nil
}

// GetTransaction returns one transaction by id.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.repo.FindTransactionByID(ctx, id)
}

// GetTransactionByCode returns one transaction by its public code.
func (s *Service) GetTransactionByCode(ctx context.Context, code string) (*domain.Transaction, error) {
	return s.repo.FindTransactionByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// ListTransactions returns the full transaction set.
func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// Stats recomputes the aggregate snapshot from the full transaction set.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	transactions, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return stats.Compute(transactions), nil
}

// BroadcastStats recomputes the snapshot and publishes it on the bus. Used by
// the periodic reconciler and by the remote change feed.
func (s *Service) BroadcastStats(ctx context.Context) error {
	snapshot, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	s.bus.Publish(notify.Event{Channel: notify.ChannelStatsUpdated, Stats: &snapshot})
	return nil
}

// refreshStats recomputes statistics after a mutation and publishes the
// stats:updated event. A failed recompute is logged, never fatal: the
// mutation itself already succeeded.
func (s *Service) refreshStats(ctx context.Context) *domain.Stats {
	snapshot, err := s.Stats(ctx)
	if err != nil {
		log.Printf("level=error component=lifecycle msg=\"stats recompute failed\" err=%v", err)
		return nil
	}
	s.bus.Publish(notify.Event{Channel: notify.ChannelStatsUpdated, Stats: &snapshot})
	return &snapshot
}

// publishChange broadcasts a change event to peer instances, best effort.
func (s *Service) publishChange(ctx context.Context, kind string, tx *domain.Transaction) {
	if s.producer == nil {
		return
	}
	event := rabbitmq.ChangeEvent{
		TransactionID: tx.ID.String(),
		Code:          tx.Code,
		Kind:          kind,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.producer.PublishTransactionChange(ctx, event); err != nil {
		log.Printf("level=warn component=lifecycle msg=\"change event publish failed\" transaction_id=%s kind=%s err=%v", tx.ID, kind, err)
	}
}

func actionChannel(action domain.Action) notify.Channel {
	switch action {
	case domain.ActionValidate:
		return notify.ChannelValidated
	case domain.ActionComplete:
		return notify.ChannelCompleted
	default:
		return notify.ChannelCancelled
	}
}

// transitionAllowed checks the state machine guard for an action against the
// transaction's current status. Returns a human-readable rejection message
// when the transition is illegal.
func transitionAllowed(tx *domain.Transaction, action domain.Action) (string, bool) {
	if tx.Status.Terminal() {
		return fmt.Sprintf("transaction %s is already %s and can no longer change", tx.Code, tx.Status), false
	}
	if action == domain.ActionValidate && tx.Status != domain.StatusPending {
		return fmt.Sprintf("transaction %s cannot be validated from status %s", tx.Code, tx.Status), false
	}
	return "", true
}

func validateDraft(draft domain.TransactionDraft) error {
	if !draft.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidDraft, draft.Direction)
	}
	if !draft.Currency.Valid() {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidDraft, draft.Currency)
	}
	if !draft.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidDraft, draft.Method)
	}
	if draft.Method == domain.MethodMobileMoney && (draft.MobileNetwork == nil || strings.TrimSpace(*draft.MobileNetwork) == "") {
		return fmt.Errorf("%w: mobile money transfers require a network", ErrInvalidDraft)
	}
	if !draft.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDraft)
	}
	if draft.ReceivingAmount.IsNegative() {
		return fmt.Errorf("%w: receiving amount cannot be negative", ErrInvalidDraft)
	}
	if draft.CommissionPercent.IsNegative() || draft.CommissionPercent.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: commission percent must be between 0 and 100", ErrInvalidDraft)
	}
	if strings.TrimSpace(draft.Sender.Name) == "" || strings.TrimSpace(draft.Sender.Phone) == "" {
		return fmt.Errorf("%w: sender name and phone are required", ErrInvalidDraft)
	}
	if strings.TrimSpace(draft.Recipient.Name) == "" {
		return fmt.Errorf("%w: recipient name is required", ErrInvalidDraft)
	}
	return nil
}
