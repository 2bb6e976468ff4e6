// Package balance exposes a read-only aggregate of a user's net position
// across every ledger entry — the BalanceService from SPEC_FULL.md §4.7.
package balance

import (
	"context"

	"github.com/bryanronnie/kvitta/internal/ledger"
)

// Balance is a user's aggregated open position: amounts they owe, amounts
// owed to them, and the net (isOwed - owes).
type Balance struct {
	UserID int64 `json:"user_id"`
	Owes   int64 `json:"owes_cents"`
	IsOwed int64 `json:"is_owed_cents"`
	Net    int64 `json:"net_cents"`
}

// Service is a thin facade over ledger.Store's balance aggregation. It is
// intentionally not a graph simplification: "A owes B" and "B owes A" on
// different receipts are summed independently, never netted into one edge.
type Service struct {
	ledger *ledger.Store
}

// NewService creates a new balance service.
func NewService(ledgerStore *ledger.Store) *Service {
	return &Service{ledger: ledgerStore}
}

// Get returns userID's aggregated balance across every receipt.
func (s *Service) Get(ctx context.Context, userID int64) (*Balance, error) {
	owes, isOwed, net, err := s.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{UserID: userID, Owes: owes, IsOwed: isOwed, Net: net}, nil
}
