package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles ledger entry persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEntries bulk-inserts the obligations derived for a receipt, inside
// the transaction tx (the caller owns the transaction so that finalization
// and entry creation commit atomically).
func (r *Repository) InsertEntries(ctx context.Context, tx *sql.Tx, receiptID int64, obligations []Obligation) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(obligations))
	query := `
		INSERT INTO ledger_entries (receipt_id, debtor_id, creditor_id, amount_cents, settled_amount_cents, status)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING id, receipt_id, debtor_id, creditor_id, amount_cents, settled_amount_cents, status, is_deleted, created_at, updated_at
	`
	for _, o := range obligations {
		entry := &Entry{}
		err := tx.QueryRowContext(ctx, query, receiptID, o.DebtorID, o.CreditorID, o.AmountCents, StatusPending).Scan(
			&entry.EntryID,
			&entry.ReceiptID,
			&entry.DebtorID,
			&entry.CreditorID,
			&entry.AmountCents,
			&entry.SettledAmountCents,
			&entry.Status,
			&entry.IsDeleted,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetByID retrieves a single ledger entry.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Entry, error) {
	query := `
		SELECT id, receipt_id, debtor_id, creditor_id, amount_cents, settled_amount_cents, status, is_deleted, created_at, updated_at
		FROM ledger_entries
		WHERE id = $1
	`
	entry := &Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.EntryID,
		&entry.ReceiptID,
		&entry.DebtorID,
		&entry.CreditorID,
		&entry.AmountCents,
		&entry.SettledAmountCents,
		&entry.Status,
		&entry.IsDeleted,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ListByReceipt retrieves all non-deleted entries for a receipt.
func (r *Repository) ListByReceipt(ctx context.Context, receiptID int64) ([]*Entry, error) {
	query := `
		SELECT id, receipt_id, debtor_id, creditor_id, amount_cents, settled_amount_cents, status, is_deleted, created_at, updated_at
		FROM ledger_entries
		WHERE receipt_id = $1 AND is_deleted = false
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.EntryID,
			&entry.ReceiptID,
			&entry.DebtorID,
			&entry.CreditorID,
			&entry.AmountCents,
			&entry.SettledAmountCents,
			&entry.Status,
			&entry.IsDeleted,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SettleConditional atomically adds amountCents to settled_amount_cents,
// conditioned on the row's current settled_amount_cents still being
// expectedSettled. Returns the updated entry, or nil if the condition no
// longer held (the caller should re-read and retry).
func (r *Repository) SettleConditional(ctx context.Context, id, expectedSettled, amountCents int64) (*Entry, error) {
	entry := &Entry{}
	newSettled := expectedSettled + amountCents
	if err := r.settleWithDerivedStatus(ctx, id, expectedSettled, newSettled, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Repository) settleWithDerivedStatus(ctx context.Context, id, expectedSettled, newSettled int64, entry *Entry) error {
	query := `
		UPDATE ledger_entries
		SET settled_amount_cents = $3,
		    status = CASE WHEN $3 >= amount_cents THEN 'settled' WHEN $3 > 0 THEN 'partially_settled' ELSE 'pending' END,
		    updated_at = NOW()
		WHERE id = $1 AND settled_amount_cents = $2 AND is_deleted = false
		RETURNING id, receipt_id, debtor_id, creditor_id, amount_cents, settled_amount_cents, status, is_deleted, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, id, expectedSettled, newSettled).Scan(
		&entry.EntryID,
		&entry.ReceiptID,
		&entry.DebtorID,
		&entry.CreditorID,
		&entry.AmountCents,
		&entry.SettledAmountCents,
		&entry.Status,
		&entry.IsDeleted,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return errConflict
		}
		return fmt.Errorf("failed to settle ledger entry: %w", err)
	}
	return nil
}

// SoftDeleteForReceipt marks deleted every non-deleted entry for a receipt
// whose settled_amount_cents is still 0, and returns the number of rows it
// affected. expectedCount is not used here; the caller compares the returned
// count with it to detect entries that had already received a settlement.
func (r *Repository) SoftDeleteForReceipt(ctx context.Context, tx *sql.Tx, receiptID int64, expectedCount int) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET is_deleted = true, updated_at = NOW()
		WHERE receipt_id = $1 AND is_deleted = false AND settled_amount_cents = 0
	`
	result, err := tx.ExecContext(ctx, query, receiptID)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete ledger entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// CountActiveForReceipt counts non-deleted entries for a receipt.
func (r *Repository) CountActiveForReceipt(ctx context.Context, receiptID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ledger_entries WHERE receipt_id = $1 AND is_deleted = false`
	if err := r.db.QueryRowContext(ctx, query, receiptID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// BalanceOf aggregates open (unsettled) obligations for a user across every
// receipt: owes is the sum of open amounts where the user is the debtor,
// isOwed is the sum where the user is the creditor.
func (r *Repository) BalanceOf(ctx context.Context, userID int64) (owes, isOwed int64, err error) {
	query := `
		WITH owed_by_user AS (
			SELECT COALESCE(SUM(amount_cents - settled_amount_cents), 0) AS amount
			FROM ledger_entries
			WHERE debtor_id = $1 AND is_deleted = false AND status != 'settled'
		),
		owed_to_user AS (
			SELECT COALESCE(SUM(amount_cents - settled_amount_cents), 0) AS amount
			FROM ledger_entries
			WHERE creditor_id = $1 AND is_deleted = false AND status != 'settled'
		)
		SELECT (SELECT amount FROM owed_by_user), (SELECT amount FROM owed_to_user)
	`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&owes, &isOwed); err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate balance: %w", err)
	}
	return owes, isOwed, nil
}

// SettledSumsByDebtor sums settled_amount_cents per debtor for a receipt,
// used by ReconcileSettleSummary.
func (r *Repository) SettledSumsByDebtor(ctx context.Context, receiptID int64) (map[int64]int64, error) {
	query := `
		SELECT debtor_id, COALESCE(SUM(settled_amount_cents), 0)
		FROM ledger_entries
		WHERE receipt_id = $1 AND is_deleted = false
		GROUP BY debtor_id
	`
	rows, err := r.db.QueryContext(ctx, query, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum settled amounts: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]int64)
	for rows.Next() {
		var userID, amount int64
		if err := rows.Scan(&userID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan settled sum: %w", err)
		}
		sums[userID] = amount
	}
	return sums, nil
}
