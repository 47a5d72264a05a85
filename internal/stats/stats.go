/**
 * @description
 * This package derives aggregate statistics from a transaction collection.
 * It is the single source of truth for counts and sums: every mutation in
 * the lifecycle manager triggers a full recompute through Compute rather
 * than maintaining incremental counters that can drift.
 */

package stats

import (
	"github.com/goldenelnobles/transaction-service/internal/domain"
)

// Compute derives a statistics snapshot from the full transaction set in a
// single pass. It is pure and order-independent: the same multiset of
// transactions always yields the same snapshot. Amount and commission sums
// cover completed transactions only.
func Compute(transactions []domain.Transaction) domain.Stats {
	s := domain.Stats{}
	for i := range transactions {
		tx := &transactions[i]
		s.Total++
		switch tx.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusValidated:
			s.Validated++
		case domain.StatusCompleted:
			s.Completed++
			s.TotalAmount = s.TotalAmount.Add(tx.Amount)
			s.TotalCommission = s.TotalCommission.Add(tx.CommissionAmount)
		case domain.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
