// Package core wires the Receipt, Ledger, Balance, User, Group, and
// Notification services into a single CoreAPI facade — the one entry point
// the HTTP layer (and any future transport) calls into.
package core

import (
	"context"
	"fmt"
	"log"

	"github.com/bryanronnie/kvitta/internal/balance"
	"github.com/bryanronnie/kvitta/internal/group"
	"github.com/bryanronnie/kvitta/internal/ledger"
	"github.com/bryanronnie/kvitta/internal/notification"
	"github.com/bryanronnie/kvitta/internal/receipt"
	"github.com/bryanronnie/kvitta/internal/user"
)

// API is the CoreAPI described in SPEC_FULL.md §4.11: it composes the
// domain services and adds the cross-cutting behavior (notifications on
// finalize/settle, seeding a receipt's roster from a group) that doesn't
// belong in any single one of them.
type API struct {
	Receipts      *receipt.Store
	Ledger        *ledger.Store
	Balances      *balance.Service
	Users         *user.Service
	Groups        *group.Service
	Notifications *notification.Service
}

// New creates a new CoreAPI.
func New(receipts *receipt.Store, ledgerStore *ledger.Store, balances *balance.Service, users *user.Service, groups *group.Service, notifications *notification.Service) *API {
	return &API{
		Receipts:      receipts,
		Ledger:        ledgerStore,
		Balances:      balances,
		Users:         users,
		Groups:        groups,
		Notifications: notifications,
	}
}

// CreateReceiptFromGroup creates a draft receipt owned by ownerID and seeds
// its participants from groupID's joined roster, per SPEC_FULL.md's
// folder_id/group open question.
func (a *API) CreateReceiptFromGroup(ctx context.Context, ownerID, groupID int64, title, description string) (*receipt.Receipt, error) {
	rec, err := a.Receipts.Create(ctx, ownerID, title, description, "", &groupID)
	if err != nil {
		return nil, err
	}

	roster, err := a.Groups.Roster(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read group roster: %w", err)
	}
	for _, userID := range roster {
		if userID == ownerID {
			continue
		}
		if err := a.Receipts.AddMember(ctx, rec.ReceiptID, ownerID, userID); err != nil {
			return nil, err
		}
	}

	rec, err = a.Receipts.Get(ctx, rec.ReceiptID, ownerID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AddMember resolves email to a user and adds them as a member of the
// receipt, per SPEC_FULL.md §4.6 (the store itself works in user IDs; email
// resolution is a cross-cutting concern the facade owns).
func (a *API) AddMember(ctx context.Context, receiptID, callerID int64, email string) (*receipt.Receipt, error) {
	u, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := a.Receipts.AddMember(ctx, receiptID, callerID, u.ID); err != nil {
		return nil, err
	}
	rec, err := a.Receipts.Get(ctx, receiptID, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := a.Notifications.NotifySplitAssigned(ctx, u.ID, rec.Title, rec.ReceiptID); err != nil {
		log.Printf("failed to notify new member %d on receipt %d: %v", u.ID, rec.ReceiptID, err)
	}
	return rec, nil
}

// Finalize finalizes a receipt and notifies every participant who isn't the
// caller that the split is now locked in.
func (a *API) Finalize(ctx context.Context, receiptID, callerID, expectedVersion int64) (*receipt.Receipt, []*ledger.Entry, error) {
	rec, entries, err := a.Receipts.Finalize(ctx, receiptID, callerID, expectedVersion)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range rec.Participants {
		if p.UserID == callerID {
			continue
		}
		if _, err := a.Notifications.NotifyReceiptFinalized(ctx, p.UserID, rec.Title, rec.ReceiptID); err != nil {
			log.Printf("failed to notify participant %d of finalized receipt %d: %v", p.UserID, rec.ReceiptID, err)
		}
	}
	return rec, entries, nil
}

// Settle applies a payment to a ledger entry and, once it is fully settled,
// notifies the creditor.
func (a *API) Settle(ctx context.Context, entryID, callerID, amountCents int64) (*ledger.Entry, error) {
	entry, err := a.Ledger.Settle(ctx, entryID, callerID, amountCents)
	if err != nil {
		return nil, err
	}
	if entry.Status == ledger.StatusSettled {
		debtor, err := a.Users.GetByID(ctx, entry.DebtorID)
		if err == nil && debtor != nil {
			if _, err := a.Notifications.NotifyLedgerSettled(ctx, entry.CreditorID, debtor.Username, entry.EntryID); err != nil {
				log.Printf("failed to notify creditor %d of settled entry %d: %v", entry.CreditorID, entry.EntryID, err)
			}
		}
	}
	if _, err := a.Receipts.ReconcileSettleSummary(ctx, entry.ReceiptID); err != nil {
		return nil, err
	}
	return entry, nil
}
