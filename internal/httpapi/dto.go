package httpapi

import (
	"encoding/json"
	"time"

	"github.com/bryanronnie/kvitta/internal/ledger"
	"github.com/bryanronnie/kvitta/internal/receipt"
)

// CreateReceiptRequest is the body of POST /receipts.
type CreateReceiptRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=1000"`
	Comments    string `json:"comments" validate:"max=1000"`
	GroupID     *int64 `json:"group_id,omitempty"`
}

// UpdateReceiptRequest is the body of PUT /receipts/{id}. Any field besides
// version may be omitted to leave it unchanged — the "patch … in any
// subset" autosave contract from spec.md §4.6. Its UnmarshalJSON tracks
// which fields the caller actually sent so toPatch can tell "omitted" from
// "sent as its zero value".
type UpdateReceiptRequest struct {
	Version     int64            `json:"version" validate:"required"`
	Title       string           `json:"title" validate:"omitempty,min=1,max=255"`
	Description string           `json:"description" validate:"max=1000"`
	Comments    string           `json:"comments" validate:"max=1000"`
	FolderID    *int64           `json:"folder_id"`
	Items       []ItemRequest    `json:"items"`
	Charges     []ChargeRequest  `json:"charges"`
	Payments    []PaymentRequest `json:"payments"`

	fieldsSet map[string]bool
}

// UnmarshalJSON decodes into the embedded fields and separately records
// which top-level keys were present in the payload, so an omitted field
// and one sent as its zero value are distinguishable downstream.
func (req *UpdateReceiptRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateReceiptRequest
	if err := json.Unmarshal(data, (*plain)(req)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	req.fieldsSet = make(map[string]bool, len(raw))
	for k := range raw {
		req.fieldsSet[k] = true
	}
	return nil
}

// toPatch converts the request into a receipt.Patch, using the fields the
// caller actually sent to set each Patch.*Set flag.
func (req *UpdateReceiptRequest) toPatch() receipt.Patch {
	return receipt.Patch{
		Title:          req.Title,
		TitleSet:       req.fieldsSet["title"],
		Description:    req.Description,
		DescriptionSet: req.fieldsSet["description"],
		Comments:       req.Comments,
		CommentsSet:    req.fieldsSet["comments"],
		FolderID:       req.FolderID,
		FolderIDSet:    req.fieldsSet["folder_id"],
		Items:          toItems(req.Items),
		ItemsSet:       req.fieldsSet["items"],
		Charges:        toCharges(req.Charges),
		ChargesSet:     req.fieldsSet["charges"],
		Payments:       toPayments(req.Payments),
		PaymentsSet:    req.fieldsSet["payments"],
	}
}

// ItemRequest is an Item in wire form.
type ItemRequest struct {
	Name           string             `json:"name" validate:"required"`
	UnitPriceCents int64              `json:"unit_price_cents" validate:"gte=0"`
	Quantity       float64            `json:"quantity" validate:"gt=0"`
	Taxable        bool               `json:"taxable"`
	Splits         []ItemSplitRequest `json:"splits"`
}

// ItemSplitRequest is an ItemSplit in wire form.
type ItemSplitRequest struct {
	UserID        int64   `json:"user_id" validate:"required"`
	ShareQuantity float64 `json:"share_quantity" validate:"gt=0"`
}

// ChargeRequest is a Charge in wire form.
type ChargeRequest struct {
	Name           string               `json:"name" validate:"required"`
	UnitPriceCents int64                `json:"unit_price_cents" validate:"gte=0"`
	Taxable        bool                 `json:"taxable"`
	Splits         []ChargeSplitRequest `json:"splits"`
}

// ChargeSplitRequest is a ChargeSplit in wire form.
type ChargeSplitRequest struct {
	UserID int64   `json:"user_id" validate:"required"`
	Weight float64 `json:"weight" validate:"gt=0"`
}

// PaymentRequest is a Payment in wire form.
type PaymentRequest struct {
	UserID          int64 `json:"user_id" validate:"required"`
	AmountPaidCents int64 `json:"amount_paid_cents" validate:"gte=0"`
}

// AddMemberRequest is the body of POST /receipts/{id}/members.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// FinalizeRequest is the body of POST /receipts/{id}/finalize and /unfinalize.
type FinalizeRequest struct {
	Version int64 `json:"version" validate:"required"`
}

// SettleRequest is the body of POST /ledger/entries/{id}/settle.
type SettleRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"gte=0"`
}

func toItems(reqs []ItemRequest) []receipt.Item {
	items := make([]receipt.Item, len(reqs))
	for i, it := range reqs {
		splits := make([]receipt.ItemSplit, len(it.Splits))
		for j, s := range it.Splits {
			splits[j] = receipt.ItemSplit{UserID: s.UserID, ShareQuantity: s.ShareQuantity}
		}
		items[i] = receipt.Item{
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			Taxable:        it.Taxable,
			Splits:         splits,
		}
	}
	return items
}

func toCharges(reqs []ChargeRequest) []receipt.Charge {
	charges := make([]receipt.Charge, len(reqs))
	for i, c := range reqs {
		splits := make([]receipt.ChargeSplit, len(c.Splits))
		for j, s := range c.Splits {
			splits[j] = receipt.ChargeSplit{UserID: s.UserID, Weight: s.Weight}
		}
		charges[i] = receipt.Charge{
			Name:           c.Name,
			UnitPriceCents: c.UnitPriceCents,
			Taxable:        c.Taxable,
			Splits:         splits,
		}
	}
	return charges
}

func toPayments(reqs []PaymentRequest) []receipt.Payment {
	payments := make([]receipt.Payment, len(reqs))
	for i, p := range reqs {
		payments[i] = receipt.Payment{UserID: p.UserID, AmountPaidCents: p.AmountPaidCents}
	}
	return payments
}

// ReceiptResponse is a Receipt in wire form.
type ReceiptResponse struct {
	ReceiptID     int64                        `json:"receipt_id"`
	OwnerID       int64                        `json:"owner_id"`
	Title         string                       `json:"title"`
	Description   string                       `json:"description"`
	Comments      string                       `json:"comments"`
	Status        receipt.Status               `json:"status"`
	Participants  []receipt.Participant        `json:"participants"`
	Items         []receipt.Item               `json:"items"`
	Charges       []receipt.Charge             `json:"charges"`
	Payments      []receipt.Payment            `json:"payments"`
	SubtotalCents int64                        `json:"subtotal_cents"`
	TotalCents    int64                        `json:"total_cents"`
	SettleSummary []receipt.SettleSummaryEntry `json:"settle_summary"`
	Version       int64                        `json:"version"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

func toReceiptResponse(r *receipt.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		ReceiptID:     r.ReceiptID,
		OwnerID:       r.OwnerID,
		Title:         r.Title,
		Description:   r.Description,
		Comments:      r.Comments,
		Status:        r.Status,
		Participants:  r.Participants,
		Items:         r.Items,
		Charges:       r.Charges,
		Payments:      r.Payments,
		SubtotalCents: r.SubtotalCents,
		TotalCents:    r.TotalCents,
		SettleSummary: r.SettleSummary,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// FinalizeResponse bundles the finalized receipt with the ledger entries it produced.
type FinalizeResponse struct {
	Receipt *ReceiptResponse `json:"receipt"`
	Entries []*ledger.Entry  `json:"ledger_entries"`
}
