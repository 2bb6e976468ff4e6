// Package ledger derives and tracks the pairwise debtor/creditor
// obligations that result from a finalized receipt.
package ledger

import "time"

// Status is the settlement progress of a single ledger entry.
type Status string

const (
	StatusPending           Status = "pending"
	StatusPartiallySettled  Status = "partially_settled"
	StatusSettled           Status = "settled"
)

// Entry is one obligation: DebtorID owes CreditorID AmountCents, of which
// SettledAmountCents has already been paid down.
type Entry struct {
	EntryID            int64     `json:"entry_id"`
	ReceiptID          int64     `json:"receipt_id"`
	DebtorID           int64     `json:"debtor_id"`
	CreditorID         int64     `json:"creditor_id"`
	AmountCents        int64     `json:"amount_cents"`
	SettledAmountCents int64     `json:"settled_amount_cents"`
	Status             Status    `json:"status"`
	IsDeleted          bool      `json:"is_deleted"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Open returns the amount still owed on this entry.
func (e *Entry) Open() int64 {
	return e.AmountCents - e.SettledAmountCents
}
