package receipt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// errConflict is returned internally when a version-conditioned write finds
// no matching row; Store translates it to ErrVersionConflict.
var errConflict = errors.New("receipt: version conflict")

// querier is satisfied by both *sql.DB and *sql.Tx, letting read helpers run
// either standalone or inside a caller's transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository handles Receipt aggregate persistence across its normalized
// child tables.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new receipt repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// BeginTx starts a transaction for callers that need update/finalize/
// unfinalize atomicity spanning multiple repository calls.
func (r *Repository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

// CreateReceipt inserts a new draft receipt owned by ownerID, and adds the
// owner as its first participant.
func (r *Repository) CreateReceipt(ctx context.Context, tx *sql.Tx, ownerID int64, title, description, comments string, folderID *int64) (*Receipt, error) {
	query := `
		INSERT INTO receipts (owner_id, title, description, comments, folder_id, status, version, is_deleted, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, 1, false, $1, $1)
		RETURNING id, owner_id, title, description, comments, folder_id, status, version, is_deleted, created_at, updated_at, created_by, updated_by
	`
	rec := &Receipt{}
	if err := tx.QueryRowContext(ctx, query, ownerID, title, description, comments, folderID, StatusDraft).Scan(
		&rec.ReceiptID, &rec.OwnerID, &rec.Title, &rec.Description, &rec.Comments, &rec.FolderID,
		&rec.Status, &rec.Version, &rec.IsDeleted, &rec.CreatedAt, &rec.UpdatedAt, &rec.CreatedBy, &rec.UpdatedBy,
	); err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	if err := r.addParticipant(ctx, tx, rec.ReceiptID, ownerID, RoleOwner); err != nil {
		return nil, err
	}
	rec.Participants = []Participant{{UserID: ownerID, Role: RoleOwner}}
	return rec, nil
}

// GetByID loads the full Receipt aggregate, or nil if it does not exist or
// has been soft-deleted.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Receipt, error) {
	return r.load(ctx, r.db, id)
}

func (r *Repository) load(ctx context.Context, q querier, id int64) (*Receipt, error) {
	query := `
		SELECT id, owner_id, title, description, comments, folder_id, status,
		       subtotal_cents, total_cents, version, is_deleted, created_at, updated_at, created_by, updated_by
		FROM receipts
		WHERE id = $1 AND is_deleted = false
	`
	rec := &Receipt{}
	err := q.QueryRowContext(ctx, query, id).Scan(
		&rec.ReceiptID, &rec.OwnerID, &rec.Title, &rec.Description, &rec.Comments, &rec.FolderID,
		&rec.Status, &rec.SubtotalCents, &rec.TotalCents, &rec.Version, &rec.IsDeleted,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.CreatedBy, &rec.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if rec.Participants, err = r.loadParticipants(ctx, q, id); err != nil {
		return nil, err
	}
	if rec.Items, err = r.loadItems(ctx, q, id); err != nil {
		return nil, err
	}
	if rec.Charges, err = r.loadCharges(ctx, q, id); err != nil {
		return nil, err
	}
	if rec.Payments, err = r.loadPayments(ctx, q, id); err != nil {
		return nil, err
	}
	if rec.SettleSummary, err = r.loadSettleSummary(ctx, q, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Repository) loadParticipants(ctx context.Context, q querier, receiptID int64) ([]Participant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, role, joined_at FROM receipt_participants WHERE receipt_id = $1 ORDER BY joined_at
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) loadItems(ctx context.Context, q querier, receiptID int64) ([]Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, unit_price_cents, quantity, taxable FROM receipt_items WHERE receipt_id = $1 ORDER BY id
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	var ids []int64
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ItemID, &it.Name, &it.UnitPriceCents, &it.Quantity, &it.Taxable); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
		ids = append(ids, it.ItemID)
	}
	for i, itemID := range ids {
		splits, err := r.loadItemSplits(ctx, q, itemID)
		if err != nil {
			return nil, err
		}
		items[i].Splits = splits
	}
	return items, nil
}

func (r *Repository) loadItemSplits(ctx context.Context, q querier, itemID int64) ([]ItemSplit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, share_quantity FROM receipt_item_splits WHERE item_id = $1 ORDER BY user_id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item splits: %w", err)
	}
	defer rows.Close()

	var splits []ItemSplit
	for rows.Next() {
		var s ItemSplit
		if err := rows.Scan(&s.UserID, &s.ShareQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan item split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, nil
}

func (r *Repository) loadCharges(ctx context.Context, q querier, receiptID int64) ([]Charge, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, unit_price_cents, taxable FROM receipt_charges WHERE receipt_id = $1 ORDER BY id
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	defer rows.Close()

	var charges []Charge
	var ids []int64
	for rows.Next() {
		var c Charge
		if err := rows.Scan(&c.ChargeID, &c.Name, &c.UnitPriceCents, &c.Taxable); err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, c)
		ids = append(ids, c.ChargeID)
	}
	for i, chargeID := range ids {
		splits, err := r.loadChargeSplits(ctx, q, chargeID)
		if err != nil {
			return nil, err
		}
		charges[i].Splits = splits
	}
	return charges, nil
}

func (r *Repository) loadChargeSplits(ctx context.Context, q querier, chargeID int64) ([]ChargeSplit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, weight FROM receipt_charge_splits WHERE charge_id = $1 ORDER BY user_id
	`, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charge splits: %w", err)
	}
	defer rows.Close()

	var splits []ChargeSplit
	for rows.Next() {
		var s ChargeSplit
		if err := rows.Scan(&s.UserID, &s.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan charge split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, nil
}

func (r *Repository) loadPayments(ctx context.Context, q querier, receiptID int64) ([]Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, amount_paid_cents FROM receipt_payments WHERE receipt_id = $1 ORDER BY user_id
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.UserID, &p.AmountPaidCents); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *Repository) loadSettleSummary(ctx context.Context, q querier, receiptID int64) ([]SettleSummaryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, amount_cents, paid_cents, net_cents, settled_amount_cents, is_settled, settled_at, status
		FROM receipt_settle_summary WHERE receipt_id = $1 ORDER BY user_id
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settle summary: %w", err)
	}
	defer rows.Close()

	var out []SettleSummaryEntry
	for rows.Next() {
		var e SettleSummaryEntry
		if err := rows.Scan(&e.UserID, &e.AmountCents, &e.PaidCents, &e.NetCents, &e.SettledAmountCents, &e.IsSettled, &e.SettledAt, &e.Status); err != nil {
			return nil, fmt.Errorf("failed to scan settle summary entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ListByUser returns receipts where userID is a participant, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Receipt, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT r.id)
		FROM receipts r
		JOIN receipt_participants p ON r.id = p.receipt_id
		WHERE p.user_id = $1 AND r.is_deleted = false
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	query := `
		SELECT r.id
		FROM receipts r
		JOIN receipt_participants p ON r.id = p.receipt_id
		WHERE p.user_id = $1 AND r.is_deleted = false
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan receipt id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	receipts := make([]*Receipt, 0, len(ids))
	for _, id := range ids {
		rec, err := r.load(ctx, r.db, id)
		if err != nil {
			return nil, 0, err
		}
		if rec != nil {
			receipts = append(receipts, rec)
		}
	}
	return receipts, total, nil
}

func (r *Repository) addParticipant(ctx context.Context, tx *sql.Tx, receiptID, userID int64, role ParticipantRole) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO receipt_participants (receipt_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (receipt_id, user_id) DO NOTHING
	`, receiptID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// AddParticipant adds userID to a receipt within tx.
func (r *Repository) AddParticipant(ctx context.Context, tx *sql.Tx, receiptID, userID int64, role ParticipantRole) error {
	return r.addParticipant(ctx, tx, receiptID, userID, role)
}

// RemoveParticipant detaches userID from a receipt within tx.
func (r *Repository) RemoveParticipant(ctx context.Context, tx *sql.Tx, receiptID, userID int64) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM receipt_participants WHERE receipt_id = $1 AND user_id = $2
	`, receiptID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// ReplaceContent rewrites a receipt's items, charges, and payments,
// replacing whatever was there before. Callers run this inside tx alongside
// a version bump so the whole update commits atomically.
func (r *Repository) ReplaceContent(ctx context.Context, tx *sql.Tx, receiptID int64, items []Item, charges []Charge, payments []Payment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = $1`, receiptID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_charges WHERE receipt_id = $1`, receiptID); err != nil {
		return fmt.Errorf("failed to clear charges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_payments WHERE receipt_id = $1`, receiptID); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}

	for _, item := range items {
		var itemID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO receipt_items (receipt_id, name, unit_price_cents, quantity, taxable)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, receiptID, item.Name, item.UnitPriceCents, item.Quantity, item.Taxable).Scan(&itemID)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		for _, s := range item.Splits {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO receipt_item_splits (item_id, user_id, share_quantity) VALUES ($1, $2, $3)
			`, itemID, s.UserID, s.ShareQuantity); err != nil {
				return fmt.Errorf("failed to insert item split: %w", err)
			}
		}
	}

	for _, charge := range charges {
		var chargeID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO receipt_charges (receipt_id, name, unit_price_cents, taxable)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, receiptID, charge.Name, charge.UnitPriceCents, charge.Taxable).Scan(&chargeID)
		if err != nil {
			return fmt.Errorf("failed to insert charge: %w", err)
		}
		for _, s := range charge.Splits {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO receipt_charge_splits (charge_id, user_id, weight) VALUES ($1, $2, $3)
			`, chargeID, s.UserID, s.Weight); err != nil {
				return fmt.Errorf("failed to insert charge split: %w", err)
			}
		}
	}

	for _, p := range payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_payments (receipt_id, user_id, amount_paid_cents) VALUES ($1, $2, $3)
		`, receiptID, p.UserID, p.AmountPaidCents); err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}
	return nil
}

// ReplaceSettleSummary rewrites the derived per-participant summary rows.
func (r *Repository) ReplaceSettleSummary(ctx context.Context, tx *sql.Tx, receiptID int64, entries []SettleSummaryEntry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_settle_summary WHERE receipt_id = $1`, receiptID); err != nil {
		return fmt.Errorf("failed to clear settle summary: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_settle_summary
				(receipt_id, user_id, amount_cents, paid_cents, net_cents, settled_amount_cents, is_settled, settled_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, receiptID, e.UserID, e.AmountCents, e.PaidCents, e.NetCents, e.SettledAmountCents, e.IsSettled, e.SettledAt, e.Status); err != nil {
			return fmt.Errorf("failed to insert settle summary entry: %w", err)
		}
	}
	return nil
}

// UpdateFieldsAndBumpVersion writes the receipt's top-level fields and
// derived totals and increments version, conditioned on the caller's
// expectedVersion still matching. Returns errConflict if it no longer does.
// Callers that aren't patching title/description/comments/folder_id (e.g.
// AddMember, RemoveMember) pass the receipt's current values back through
// unchanged.
func (r *Repository) UpdateFieldsAndBumpVersion(ctx context.Context, tx *sql.Tx, receiptID, expectedVersion int64, title, description, comments string, folderID *int64, subtotalCents, totalCents, updatedBy int64) (int64, error) {
	var newVersion int64
	err := tx.QueryRowContext(ctx, `
		UPDATE receipts
		SET title = $3, description = $4, comments = $5, folder_id = $6,
		    subtotal_cents = $7, total_cents = $8, version = version + 1, updated_at = NOW(), updated_by = $9
		WHERE id = $1 AND version = $2 AND is_deleted = false
		RETURNING version
	`, receiptID, expectedVersion, title, description, comments, folderID, subtotalCents, totalCents, updatedBy).Scan(&newVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errConflict
		}
		return 0, fmt.Errorf("failed to update receipt totals: %w", err)
	}
	return newVersion, nil
}

// SetStatus flips status and bumps version, conditioned on expectedVersion.
func (r *Repository) SetStatus(ctx context.Context, tx *sql.Tx, receiptID, expectedVersion int64, status Status, updatedBy int64) (int64, error) {
	var newVersion int64
	err := tx.QueryRowContext(ctx, `
		UPDATE receipts
		SET status = $3, version = version + 1, updated_at = NOW(), updated_by = $4
		WHERE id = $1 AND version = $2 AND is_deleted = false
		RETURNING version
	`, receiptID, expectedVersion, status, updatedBy).Scan(&newVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errConflict
		}
		return 0, fmt.Errorf("failed to update receipt status: %w", err)
	}
	return newVersion, nil
}

// SoftDelete marks a receipt deleted, conditioned on expectedVersion.
func (r *Repository) SoftDelete(ctx context.Context, tx *sql.Tx, receiptID, expectedVersion int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE receipts
		SET is_deleted = true, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND is_deleted = false
	`, receiptID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to soft delete receipt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return errConflict
	}
	return nil
}
