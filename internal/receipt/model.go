// Package receipt implements the Receipt aggregate: its data model,
// structural validation, split calculation, and persistence.
package receipt

import (
	"time"

	"github.com/bryanronnie/kvitta/internal/money"
)

// Status is the lifecycle state of a Receipt.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

// ParticipantRole distinguishes the receipt owner from everyone else.
type ParticipantRole string

const (
	RoleOwner  ParticipantRole = "owner"
	RoleMember ParticipantRole = "member"
)

// SettleStatus is the derived per-participant settlement state, recomputed
// by SplitCalculator and overlaid with ledger progress by ReconcileSettleSummary.
type SettleStatus string

const (
	SettleStatusPending           SettleStatus = "pending"
	SettleStatusPartiallySettled  SettleStatus = "partially_settled"
	SettleStatusSettled           SettleStatus = "settled"
	SettleStatusCreditor          SettleStatus = "creditor"
)

// Participant is a user attached to a Receipt.
type Participant struct {
	UserID   int64           `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// ItemSplit is one participant's share of an Item, in share units (not cents).
type ItemSplit struct {
	UserID        int64   `json:"user_id"`
	ShareQuantity float64 `json:"share_quantity"`
}

// Item is a line of the receipt: a product bought at unit_price_cents per
// unit, consumed across Splits according to ShareQuantity.
type Item struct {
	ItemID         int64       `json:"item_id"`
	Name           string      `json:"name"`
	UnitPriceCents int64       `json:"unit_price_cents"`
	Quantity       float64     `json:"quantity"`
	Taxable        bool        `json:"taxable"`
	Splits         []ItemSplit `json:"splits"`
}

// ChargeSplit is one participant's fractional weight of a Charge.
type ChargeSplit struct {
	UserID int64   `json:"user_id"`
	Weight float64 `json:"weight"`
}

// Charge is an ad-hoc, non-itemized cost (tax, tip, delivery fee, ...).
// Empty Splits means "split equally across every participant".
type Charge struct {
	ChargeID       int64         `json:"charge_id"`
	Name           string        `json:"name"`
	UnitPriceCents int64         `json:"unit_price_cents"`
	Taxable        bool          `json:"taxable"`
	Splits         []ChargeSplit `json:"splits"`
}

// Payment records money a participant put toward the receipt's total.
type Payment struct {
	UserID         int64 `json:"user_id"`
	AmountPaidCents int64 `json:"amount_paid_cents"`
}

// SettleSummaryEntry is one participant's derived position on the receipt.
type SettleSummaryEntry struct {
	UserID              int64        `json:"user_id"`
	AmountCents         int64        `json:"amount_cents"`
	PaidCents           int64        `json:"paid_cents"`
	NetCents            int64        `json:"net_cents"`
	SettledAmountCents  int64        `json:"settled_amount_cents"`
	IsSettled           bool         `json:"is_settled"`
	SettledAt           *time.Time   `json:"settled_at,omitempty"`
	Status              SettleStatus `json:"status"`
}

// Receipt is the root aggregate: a shared bill with embedded line data.
type Receipt struct {
	ReceiptID      int64                 `json:"receipt_id"`
	OwnerID        int64                 `json:"owner_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Comments       string                `json:"comments"`
	FolderID       *int64                `json:"folder_id,omitempty"`
	Status         Status                `json:"status"`
	Participants   []Participant         `json:"participants"`
	Items          []Item                `json:"items"`
	Charges        []Charge              `json:"charges"`
	Payments       []Payment             `json:"payments"`
	SubtotalCents  int64                 `json:"subtotal_cents"`
	TotalCents     int64                 `json:"total_cents"`
	SettleSummary  []SettleSummaryEntry  `json:"settle_summary"`
	Version        int64                 `json:"version"`
	IsDeleted      bool                  `json:"is_deleted"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	CreatedBy      int64                 `json:"created_by"`
	UpdatedBy      int64                 `json:"updated_by"`
}

// IsParticipant reports whether userID is the owner or a member.
func (r *Receipt) IsParticipant(userID int64) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ComputeTotals derives SubtotalCents and TotalCents from Items and Charges.
func (r *Receipt) ComputeTotals() {
	var subtotal int64
	for _, item := range r.Items {
		subtotal += money.IntegerScale(item.UnitPriceCents, item.Quantity)
	}
	total := subtotal
	for _, charge := range r.Charges {
		total += charge.UnitPriceCents
	}
	r.SubtotalCents = subtotal
	r.TotalCents = total
}
