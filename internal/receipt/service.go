package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanronnie/kvitta/internal/ledger"
)

// Common errors returned by Store.
var (
	ErrNotFound             = errors.New("receipt not found")
	ErrForbidden            = errors.New("user is not a participant on this receipt")
	ErrNotOwner             = errors.New("only the receipt owner may perform this action")
	ErrVersionConflict      = errors.New("receipt: version conflict")
	ErrAlreadyFinalized     = errors.New("receipt has already been finalized")
	ErrNotFinalized         = errors.New("receipt has not been finalized")
	ErrAlreadySettled       = errors.New("receipt has entries with a partial settlement and cannot be unfinalized")
	ErrMemberHasObligations = ErrOrphanedMember
	ErrAlreadyMember        = errors.New("user is already a participant on this receipt")
	ErrNotMember            = errors.New("user is not a participant on this receipt")
	ErrCannotRemoveOwner    = errors.New("the receipt owner cannot be removed")
	ErrEmptyReceipt         = errors.New("receipt total is zero, nothing to finalize")
	ErrPaymentMismatch      = errors.New("sum of payments does not equal the receipt total")
)

// Store is the ReceiptStore: persistence plus the lifecycle operations
// described in SPEC_FULL.md §4.6. SplitCalculator (Compute/SettleSummary)
// and LedgerBuilder (ledger.Build, via ledger.Store) are pure and stateless;
// Store is the only place that wires them to persistence and to each other.
type Store struct {
	repo   *Repository
	ledger *ledger.Store
}

// NewStore creates a new receipt store.
func NewStore(repo *Repository, ledgerStore *ledger.Store) *Store {
	return &Store{repo: repo, ledger: ledgerStore}
}

// Create starts a new draft receipt owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID int64, title, description, comments string, folderID *int64) (*Receipt, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := s.repo.CreateReceipt(ctx, tx, ownerID, title, description, comments, folderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit receipt creation: %w", err)
	}
	return rec, nil
}

// Get retrieves a receipt, requiring callerID to be a participant. A receipt
// the caller does not participate in is reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, receiptID, callerID int64) (*Receipt, error) {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if !rec.IsParticipant(callerID) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// List returns the receipts userID participates in.
func (s *Store) List(ctx context.Context, userID int64, page, perPage int) ([]*Receipt, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	return s.repo.ListByUser(ctx, userID, perPage, offset)
}

// Patch is a partial update to a draft receipt (spec.md §4.6's "patch.field
// in any subset" autosave contract): a Set flag true means the field was
// present in the request and Value should replace the receipt's current
// one; Set false means the field was omitted and the current value is kept.
type Patch struct {
	Title          string
	TitleSet       bool
	Description    string
	DescriptionSet bool
	Comments       string
	CommentsSet    bool
	FolderID       *int64
	FolderIDSet    bool
	Items          []Item
	ItemsSet       bool
	Charges        []Charge
	ChargesSet     bool
	Payments       []Payment
	PaymentsSet    bool
}

// Update applies patch to a draft receipt, validates the resulting content,
// recomputes totals and settle_summary, and bumps version. Fields patch
// leaves unset keep the receipt's current value, so an autosave client can
// send just the field it changed. It refuses to touch a finalized receipt:
// edit the draft, then re-finalize.
func (s *Store) Update(ctx context.Context, receiptID, callerID, expectedVersion int64, patch Patch) (*Receipt, error) {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if rec.Status != StatusDraft {
		return nil, ErrAlreadyFinalized
	}

	title, description, comments, folderID := rec.Title, rec.Description, rec.Comments, rec.FolderID
	items, charges, payments := rec.Items, rec.Charges, rec.Payments
	if patch.TitleSet {
		title = patch.Title
	}
	if patch.DescriptionSet {
		description = patch.Description
	}
	if patch.CommentsSet {
		comments = patch.Comments
	}
	if patch.FolderIDSet {
		folderID = patch.FolderID
	}
	if patch.ItemsSet {
		items = patch.Items
	}
	if patch.ChargesSet {
		charges = patch.Charges
	}
	if patch.PaymentsSet {
		payments = patch.Payments
	}

	if err := Validate(items, charges, payments); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.ReplaceContent(ctx, tx, receiptID, items, charges, payments); err != nil {
		return nil, err
	}

	rec.Title, rec.Description, rec.Comments, rec.FolderID = title, description, comments, folderID
	rec.Items, rec.Charges, rec.Payments = items, charges, payments
	rec.ComputeTotals()

	positions := Compute(rec.Participants, items, charges, payments)
	summary := SettleSummary(positions)
	if err := s.repo.ReplaceSettleSummary(ctx, tx, receiptID, summary); err != nil {
		return nil, err
	}

	newVersion, err := s.repo.UpdateFieldsAndBumpVersion(ctx, tx, receiptID, expectedVersion, title, description, comments, folderID, rec.SubtotalCents, rec.TotalCents, callerID)
	if err != nil {
		if errors.Is(err, errConflict) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit receipt update: %w", err)
	}

	rec.Version = newVersion
	rec.SettleSummary = summary
	return rec, nil
}

// AddMember attaches userID as a member of a draft receipt. The caller must
// be the owner and the receipt must still be in draft, per SPEC_FULL.md
// §4.6; resolving the invited user's email to userID is core.API's job.
func (s *Store) AddMember(ctx context.Context, receiptID, callerID, userID int64) error {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.OwnerID != callerID {
		return ErrNotOwner
	}
	if rec.Status != StatusDraft {
		return ErrAlreadyFinalized
	}
	if rec.IsParticipant(userID) {
		return ErrAlreadyMember
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.AddParticipant(ctx, tx, receiptID, userID, RoleMember); err != nil {
		return err
	}
	if _, err := s.repo.UpdateFieldsAndBumpVersion(ctx, tx, receiptID, rec.Version, rec.Title, rec.Description, rec.Comments, rec.FolderID, rec.SubtotalCents, rec.TotalCents, callerID); err != nil {
		if errors.Is(err, errConflict) {
			return ErrVersionConflict
		}
		return err
	}
	return tx.Commit()
}

// RemoveMember detaches userID, refusing if they still have obligations in
// the receipt's items, charges, or payments (end-to-end scenario 7).
func (s *Store) RemoveMember(ctx context.Context, receiptID, callerID, userID int64) error {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.OwnerID != callerID {
		return ErrNotOwner
	}
	if rec.Status != StatusDraft {
		return ErrAlreadyFinalized
	}
	if userID == rec.OwnerID {
		return ErrCannotRemoveOwner
	}
	if !rec.IsParticipant(userID) {
		return ErrNotMember
	}
	if err := memberHasObligations(userID, rec.Items, rec.Charges, rec.Payments); err != nil {
		return err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.RemoveParticipant(ctx, tx, receiptID, userID); err != nil {
		return err
	}
	if _, err := s.repo.UpdateFieldsAndBumpVersion(ctx, tx, receiptID, rec.Version, rec.Title, rec.Description, rec.Comments, rec.FolderID, rec.SubtotalCents, rec.TotalCents, callerID); err != nil {
		if errors.Is(err, errConflict) {
			return ErrVersionConflict
		}
		return err
	}
	return tx.Commit()
}

// Finalize runs SplitCalculator to derive net positions, feeds them to
// LedgerBuilder, flips the receipt to finalized, and persists the ledger
// entries and settle_summary — all inside one transaction, per SPEC_FULL.md
// §9's atomicity note.
func (s *Store) Finalize(ctx context.Context, receiptID, callerID, expectedVersion int64) (*Receipt, []*ledger.Entry, error) {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	if rec.OwnerID != callerID {
		return nil, nil, ErrNotOwner
	}
	if rec.Status != StatusDraft {
		return nil, nil, ErrAlreadyFinalized
	}
	if rec.TotalCents <= 0 {
		return nil, nil, ErrEmptyReceipt
	}
	var totalPaid int64
	for _, p := range rec.Payments {
		totalPaid += p.AmountPaidCents
	}
	if totalPaid != rec.TotalCents {
		return nil, nil, ErrPaymentMismatch
	}

	positions := Compute(rec.Participants, rec.Items, rec.Charges, rec.Payments)
	summary := SettleSummary(positions)
	netPositions := make(map[int64]int64, len(positions))
	for _, p := range positions {
		netPositions[p.UserID] = p.Net
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	newVersion, err := s.repo.SetStatus(ctx, tx, receiptID, expectedVersion, StatusFinalized, callerID)
	if err != nil {
		if errors.Is(err, errConflict) {
			if cur, _ := s.repo.GetByID(ctx, receiptID); cur != nil && cur.Status == StatusFinalized {
				return nil, nil, ErrAlreadyFinalized
			}
			return nil, nil, ErrVersionConflict
		}
		return nil, nil, err
	}
	if err := s.repo.ReplaceSettleSummary(ctx, tx, receiptID, summary); err != nil {
		return nil, nil, err
	}
	entries, err := s.ledger.InsertEntries(ctx, tx, receiptID, netPositions)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit finalize: %w", err)
	}

	rec.Status = StatusFinalized
	rec.Version = newVersion
	rec.SettleSummary = summary
	return rec, entries, nil
}

// Unfinalize reverts a finalized receipt to draft, deleting its ledger
// entries. It refuses if any entry has received a partial settlement
// (end-to-end scenario 6): the caller must keep the ledger history of a
// receipt someone has started paying down.
func (s *Store) Unfinalize(ctx context.Context, receiptID, callerID, expectedVersion int64) (*Receipt, error) {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if rec.Status != StatusFinalized {
		return nil, ErrNotFinalized
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	matched, expected, err := s.ledger.SoftDeleteForReceipt(ctx, tx, receiptID)
	if err != nil {
		return nil, err
	}
	if int(matched) != expected {
		return nil, ErrAlreadySettled
	}

	newVersion, err := s.repo.SetStatus(ctx, tx, receiptID, expectedVersion, StatusDraft, callerID)
	if err != nil {
		if errors.Is(err, errConflict) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit unfinalize: %w", err)
	}

	rec.Status = StatusDraft
	rec.Version = newVersion
	return rec, nil
}

// ReconcileSettleSummary overlays ledger settlement progress onto a
// finalized receipt's settle_summary, so SettledAmountCents (capped at
// AmountCents), IsSettled, Status, and SettledAt reflect Settle calls made
// after Finalize (end-to-end scenario 4).
func (s *Store) ReconcileSettleSummary(ctx context.Context, receiptID int64) ([]SettleSummaryEntry, error) {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Status != StatusFinalized {
		return rec.SettleSummary, nil
	}

	settledByDebtor, err := s.ledger.SettledSumsByDebtor(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	summary := make([]SettleSummaryEntry, len(rec.SettleSummary))
	copy(summary, rec.SettleSummary)
	for i, e := range summary {
		settled := settledByDebtor[e.UserID]
		if settled > e.AmountCents {
			settled = e.AmountCents
		}
		summary[i].SettledAmountCents = settled
		switch {
		case e.AmountCents == 0:
			// creditor or already-settled rows keep their derived status
		case settled >= e.AmountCents:
			summary[i].Status = SettleStatusSettled
			summary[i].IsSettled = true
			if summary[i].SettledAt == nil {
				now := time.Now()
				summary[i].SettledAt = &now
			}
		case settled > 0:
			summary[i].Status = SettleStatusPartiallySettled
			summary[i].IsSettled = false
		default:
			summary[i].Status = SettleStatusPending
			summary[i].IsSettled = false
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := s.repo.ReplaceSettleSummary(ctx, tx, receiptID, summary); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settle summary reconciliation: %w", err)
	}
	return summary, nil
}

// SoftDelete marks a receipt deleted. Only the owner may delete it.
func (s *Store) SoftDelete(ctx context.Context, receiptID, callerID, expectedVersion int64) error {
	rec, err := s.repo.GetByID(ctx, receiptID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.OwnerID != callerID {
		return ErrNotOwner
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.SoftDelete(ctx, tx, receiptID, expectedVersion); err != nil {
		if errors.Is(err, errConflict) {
			return ErrVersionConflict
		}
		return err
	}
	return tx.Commit()
}
