package ledger

import (
	"context"
	"database/sql"
	"errors"
)

// Common errors.
var (
	ErrNotFound                = errors.New("ledger entry not found")
	ErrAlreadyDeleted          = errors.New("ledger entry has been deleted")
	ErrInvalidSettlementAmount = errors.New("settlement amount must be between 0 and the open balance")
	ErrNotDebtor               = errors.New("only the debtor on this entry may settle it")
	errConflict                = errors.New("ledger entry was concurrently modified, retry")
)

const maxSettleRetries = 5

// Store is the LedgerStore: persistence plus the settlement and balance
// operations described in SPEC_FULL.md §4.5.
type Store struct {
	repo *Repository
}

// NewStore creates a new ledger store.
func NewStore(repo *Repository) *Store {
	return &Store{repo: repo}
}

// InsertEntries runs SplitCalculator's net positions through LedgerBuilder
// and persists the resulting obligations, inside the caller-supplied
// transaction so finalization and ledger creation commit atomically.
func (s *Store) InsertEntries(ctx context.Context, tx *sql.Tx, receiptID int64, netPositions map[int64]int64) ([]*Entry, error) {
	obligations := Build(netPositions)
	if len(obligations) == 0 {
		return nil, nil
	}
	return s.repo.InsertEntries(ctx, tx, receiptID, obligations)
}

// Settle applies a partial or full payment to an entry. Only the debtor on
// the entry may settle it. The write is conditional on the entry's
// settled_amount_cents not having changed since it was read; on a
// concurrent-modification race it retries up to maxSettleRetries times
// before giving up.
func (s *Store) Settle(ctx context.Context, entryID, callerID, amountCents int64) (*Entry, error) {
	for attempt := 0; attempt < maxSettleRetries; attempt++ {
		entry, err := s.repo.GetByID(ctx, entryID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotFound
		}
		if entry.IsDeleted {
			return nil, ErrAlreadyDeleted
		}
		if entry.DebtorID != callerID {
			return nil, ErrNotDebtor
		}
		open := entry.Open()
		if amountCents < 0 || amountCents > open {
			return nil, ErrInvalidSettlementAmount
		}

		updated, err := s.repo.SettleConditional(ctx, entryID, entry.SettledAmountCents, amountCents)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, errConflict) {
			continue
		}
		return nil, err
	}
	return nil, errConflict
}

// SoftDeleteForReceipt deletes every ledger entry for a receipt, but only
// if none have received a partial payment. If a Settle call raced in
// between the caller's precondition check and this call, fewer rows match
// than expected and the caller should treat that as AlreadySettled.
func (s *Store) SoftDeleteForReceipt(ctx context.Context, tx *sql.Tx, receiptID int64) (matched int64, expected int, err error) {
	expected, err = s.repo.CountActiveForReceipt(ctx, receiptID)
	if err != nil {
		return 0, 0, err
	}
	matched, err = s.repo.SoftDeleteForReceipt(ctx, tx, receiptID, expected)
	if err != nil {
		return 0, 0, err
	}
	return matched, expected, nil
}

// ListByReceipt returns the active ledger entries for a receipt.
func (s *Store) ListByReceipt(ctx context.Context, receiptID int64) ([]*Entry, error) {
	return s.repo.ListByReceipt(ctx, receiptID)
}

// BalanceOf aggregates a user's net position across every receipt.
func (s *Store) BalanceOf(ctx context.Context, userID int64) (owes, isOwed, net int64, err error) {
	owes, isOwed, err = s.repo.BalanceOf(ctx, userID)
	if err != nil {
		return 0, 0, 0, err
	}
	return owes, isOwed, isOwed - owes, nil
}

// SettledSumsByDebtor exposes per-debtor settled totals for a receipt, used
// by receipt.Store.ReconcileSettleSummary.
func (s *Store) SettledSumsByDebtor(ctx context.Context, receiptID int64) (map[int64]int64, error) {
	return s.repo.SettledSumsByDebtor(ctx, receiptID)
}
