/**
 * @description
 * This file defines the core domain models for the back-office transaction
 * engine. These structs represent the central ledger entity (a corridor
 * transfer), the actors that operate on it, and the result/statistics
 * shapes returned by the lifecycle manager.
 *
 * @notes
 * - Status, direction, payment method and role enums are string-typed so
 *   they map directly onto database columns and JSON payloads.
 * - Monetary fields use shopspring/decimal to keep commission arithmetic
 *   exact (a 5% commission on 1000 must be exactly 50, never 49.999...).
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Direction identifies which way a transfer moves along the corridor.
type Direction string

const (
	DirectionOriginToDestination Direction = "origin_to_destination"
	DirectionDestinationToOrigin Direction = "destination_to_origin"
)

// Valid reports whether d is a known corridor direction.
func (d Direction) Valid() bool {
	return d == DirectionOriginToDestination || d == DirectionDestinationToOrigin
}

// PaymentMethod is how the recipient is paid out.
type PaymentMethod string

const (
	MethodAgency      PaymentMethod = "agency"
	MethodMobileMoney PaymentMethod = "mobile_money"
)

// Valid reports whether m is a known payout method.
func (m PaymentMethod) Valid() bool {
	return m == MethodAgency || m == MethodMobileMoney
}

// Currency is one of the small fixed set of corridor currencies.
type Currency string

const (
	CurrencyAED Currency = "AED"
	CurrencyUSD Currency = "USD"
	CurrencySDG Currency = "SDG"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	return c == CurrencyAED || c == CurrencyUSD || c == CurrencySDG
}

// Role is the authorization level of an acting back-office user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
	RoleAuditor    Role = "auditor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleOperator, RoleAuditor:
		return true
	}
	return false
}

// Action is a lifecycle transition requested against a transaction.
type Action string

const (
	ActionValidate Action = "validate"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Valid reports whether a is a known lifecycle action.
func (a Action) Valid() bool {
	return a == ActionValidate || a == ActionComplete || a == ActionCancel
}

// Actor is the authenticated back-office user performing an operation. It is
// the only thing the lifecycle manager consumes from the identity layer.
type Actor struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Party holds the identity details of a sender or recipient. The identity
// document fields are optional for recipients.
type Party struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	IDDocType   string `json:"id_doc_type,omitempty"`
	IDDocNumber string `json:"id_doc_number,omitempty"`
}

// Transaction is the central ledger record for one corridor transfer. It maps
// onto the `transactions` table joined with its sender and recipient rows.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	Code              string          `json:"code"` // 6-char public reference
	Direction         Direction       `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	ReceivingAmount   decimal.Decimal `json:"receiving_amount"`
	Currency          Currency        `json:"currency"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	Method            PaymentMethod   `json:"payment_method"`
	MobileNetwork     *string         `json:"mobile_network,omitempty"`
	Status            Status          `json:"status"`
	Sender            Party           `json:"sender"`
	Recipient         Party           `json:"recipient"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by"`
	ValidatedBy       *string         `json:"validated_by,omitempty"`
	ValidatedAt       *time.Time      `json:"validated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TransactionDraft is the DTO for creating a new transaction. Status and
// commission amount supplied by callers are ignored; the manager forces
// pending status and recomputes the commission.
type TransactionDraft struct {
	Code              string          `json:"code,omitempty"` // optional; generated when absent or colliding
	Direction         Direction       `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	ReceivingAmount   decimal.Decimal `json:"receiving_amount"`
	Currency          Currency        `json:"currency"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	Method            PaymentMethod   `json:"payment_method"`
	MobileNetwork     *string         `json:"mobile_network,omitempty"`
	Sender            Party           `json:"sender"`
	Recipient         Party           `json:"recipient"`
	Notes             *string         `json:"notes,omitempty"`
}

// Stats is a derived snapshot of counts and sums over the full transaction
// set. Amount and commission totals cover completed transactions only.
type Stats struct {
	Total           int             `json:"total"`
	Pending         int             `json:"pending"`
	Validated       int             `json:"validated"`
	Completed       int             `json:"completed"`
	Cancelled       int             `json:"cancelled"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// ReviewResult is the outcome of a lifecycle action (validate, complete,
// cancel) or a delete. Business rejections (bad role, unknown id, illegal
// transition) are reported here with Success=false rather than as errors;
// only storage failures surface as Go errors.
type ReviewResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Stats       *Stats       `json:"stats,omitempty"`
}
