package receipt

import (
	"sort"

	"github.com/bryanronnie/kvitta/internal/money"
)

// Position is one participant's derived liability, payment, and net
// balance on a receipt. Net > 0 means the participant owes into the pool;
// net < 0 means the pool owes them.
type Position struct {
	UserID    int64
	Liability int64
	Paid      int64
	Net       int64
}

// Compute runs the SplitCalculator: given a receipt's participants, items,
// charges, and payments, it derives each participant's liability, payment,
// and net position. Items or charges with empty Splits contribute nothing
// (items) or split equally across all participants (charges).
func Compute(participants []Participant, items []Item, charges []Charge, payments []Payment) []Position {
	liability := make(map[int64]int64, len(participants))
	order := make([]int64, 0, len(participants))
	for _, p := range participants {
		if _, seen := liability[p.UserID]; !seen {
			liability[p.UserID] = 0
			order = append(order, p.UserID)
		}
	}
	ensure := func(userID int64) {
		if _, ok := liability[userID]; !ok {
			liability[userID] = 0
			order = append(order, userID)
		}
	}

	for _, item := range items {
		if len(item.Splits) == 0 {
			continue
		}
		subtotal := money.IntegerScale(item.UnitPriceCents, item.Quantity)
		weights := make([]float64, len(item.Splits))
		for i, s := range item.Splits {
			weights[i] = s.ShareQuantity
		}
		shares := money.Allocate(subtotal, weights)
		for i, s := range item.Splits {
			ensure(s.UserID)
			liability[s.UserID] += shares[i]
		}
	}

	for _, charge := range charges {
		if charge.UnitPriceCents <= 0 {
			continue
		}
		if len(charge.Splits) > 0 {
			var assigned int64
			for i, s := range charge.Splits {
				ensure(s.UserID)
				if i == len(charge.Splits)-1 {
					liability[s.UserID] += charge.UnitPriceCents - assigned
					break
				}
				share := money.IntegerScale(charge.UnitPriceCents, s.Weight)
				liability[s.UserID] += share
				assigned += share
			}
			continue
		}
		if len(order) == 0 {
			continue
		}
		weights := make([]float64, len(order))
		for i := range order {
			weights[i] = 1
		}
		shares := money.Allocate(charge.UnitPriceCents, weights)
		for i, userID := range order {
			liability[userID] += shares[i]
		}
	}

	paid := make(map[int64]int64, len(order))
	for _, p := range payments {
		ensure(p.UserID)
		paid[p.UserID] += p.AmountPaidCents
	}

	positions := make([]Position, 0, len(order))
	for _, userID := range order {
		positions = append(positions, Position{
			UserID:    userID,
			Liability: liability[userID],
			Paid:      paid[userID],
			Net:       liability[userID] - paid[userID],
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].UserID < positions[j].UserID })
	return positions
}

// SettleSummary derives the per-participant SettleSummaryEntry rows from
// Positions, per SPEC_FULL.md §4.3. Settlement progress is not known here;
// ReconcileSettleSummary overlays it afterward.
func SettleSummary(positions []Position) []SettleSummaryEntry {
	entries := make([]SettleSummaryEntry, len(positions))
	for i, pos := range positions {
		status := SettleStatusPending
		switch {
		case pos.Net < 0:
			status = SettleStatusCreditor
		case pos.Net == 0:
			status = SettleStatusSettled
		}
		entries[i] = SettleSummaryEntry{
			UserID:      pos.UserID,
			AmountCents: money.Max(pos.Net, 0),
			PaidCents:   pos.Paid,
			NetCents:    pos.Net,
			IsSettled:   pos.Net == 0,
			Status:      status,
		}
	}
	return entries
}
