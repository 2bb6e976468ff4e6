package receipt

import (
	"testing"

	"github.com/bryanronnie/kvitta/internal/ledger"
)

func netPositions(positions []Position) map[int64]int64 {
	m := make(map[int64]int64, len(positions))
	for _, p := range positions {
		m[p.UserID] = p.Net
	}
	return m
}

// TestComputeTwoWayEvenSplit is end-to-end scenario 1: one item split evenly
// between an owner and a single member, one payer.
func TestComputeTwoWayEvenSplit(t *testing.T) {
	const A, B = 1, 2
	participants := []Participant{{UserID: A, Role: RoleOwner}, {UserID: B, Role: RoleMember}}
	items := []Item{{
		UnitPriceCents: 2000,
		Quantity:       1,
		Splits:         []ItemSplit{{UserID: A, ShareQuantity: 1}, {UserID: B, ShareQuantity: 1}},
	}}
	payments := []Payment{{UserID: A, AmountPaidCents: 2000}}

	positions := Compute(participants, items, nil, payments)
	byUser := make(map[int64]Position, len(positions))
	for _, p := range positions {
		byUser[p.UserID] = p
	}
	if byUser[A].Net != -1000 || byUser[B].Net != 1000 {
		t.Fatalf("net positions = %+v, want A:-1000 B:+1000", byUser)
	}

	entries := ledger.Build(netPositions(positions))
	if len(entries) != 1 || entries[0].DebtorID != B || entries[0].CreditorID != A || entries[0].AmountCents != 1000 {
		t.Fatalf("entries = %+v, want single B->A:1000", entries)
	}
}

// TestComputeTaxAndTipProportional is end-to-end scenario 2: an item split
// evenly plus two unsplit charges that fall back to an equal split.
func TestComputeTaxAndTipProportional(t *testing.T) {
	const A, B = 1, 2
	participants := []Participant{{UserID: A, Role: RoleOwner}, {UserID: B, Role: RoleMember}}
	items := []Item{{
		UnitPriceCents: 10000,
		Quantity:       1,
		Splits:         []ItemSplit{{UserID: A, ShareQuantity: 1}, {UserID: B, ShareQuantity: 1}},
	}}
	charges := []Charge{
		{Name: "tax", UnitPriceCents: 1000},
		{Name: "tip", UnitPriceCents: 1000},
	}
	payments := []Payment{{UserID: A, AmountPaidCents: 12000}}

	positions := Compute(participants, items, charges, payments)
	byUser := make(map[int64]Position, len(positions))
	for _, p := range positions {
		byUser[p.UserID] = p
	}
	if byUser[A].Liability != 6000 || byUser[B].Liability != 6000 {
		t.Fatalf("liabilities = %+v, want 6000 each", byUser)
	}

	entries := ledger.Build(netPositions(positions))
	if len(entries) != 1 || entries[0].DebtorID != B || entries[0].CreditorID != A || entries[0].AmountCents != 6000 {
		t.Fatalf("entries = %+v, want single B->A:6000", entries)
	}
}

// TestComputeThreeWayUnequalSplit is end-to-end scenario 3: an unequal
// weighted split whose largest-remainder allocation must land
// deterministically and still sum to the item subtotal.
func TestComputeThreeWayUnequalSplit(t *testing.T) {
	const A, B, C = 1, 2, 3
	participants := []Participant{
		{UserID: A, Role: RoleOwner},
		{UserID: B, Role: RoleMember},
		{UserID: C, Role: RoleMember},
	}
	items := []Item{{
		UnitPriceCents: 3000,
		Quantity:       1,
		Splits: []ItemSplit{
			{UserID: A, ShareQuantity: 2},
			{UserID: B, ShareQuantity: 1},
			{UserID: C, ShareQuantity: 1},
		},
	}}
	payments := []Payment{{UserID: A, AmountPaidCents: 3000}}

	positions := Compute(participants, items, nil, payments)
	byUser := make(map[int64]Position, len(positions))
	var sum int64
	for _, p := range positions {
		byUser[p.UserID] = p
		sum += p.Liability
	}
	if sum != 3000 {
		t.Fatalf("liabilities sum to %d, want 3000", sum)
	}
	if byUser[A].Liability != 1500 || byUser[B].Liability != 750 || byUser[C].Liability != 750 {
		t.Fatalf("liabilities = %+v, want A:1500 B:750 C:750", byUser)
	}

	entries := ledger.Build(netPositions(positions))
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2 obligations into A", entries)
	}
	for _, e := range entries {
		if e.CreditorID != A || e.AmountCents != 750 {
			t.Fatalf("entry %+v, want creditor A amount 750", e)
		}
	}
}

// TestComputeChargeSplitLastAbsorbsRemainder checks that an explicitly
// split charge truncates each non-final share and hands the leftover to
// the final split, rather than largest-remainder tie-breaking (spec.md
// §4.3): unit_price_cents=1001 split 0.5/0.5 must yield 500/501, not
// Allocate's 501/500.
func TestComputeChargeSplitLastAbsorbsRemainder(t *testing.T) {
	const A, B = 1, 2
	participants := []Participant{{UserID: A, Role: RoleOwner}, {UserID: B, Role: RoleMember}}
	charges := []Charge{{
		Name:           "fee",
		UnitPriceCents: 1001,
		Splits:         []ChargeSplit{{UserID: A, Weight: 0.5}, {UserID: B, Weight: 0.5}},
	}}

	positions := Compute(participants, nil, charges, nil)
	byUser := make(map[int64]Position, len(positions))
	var sum int64
	for _, p := range positions {
		byUser[p.UserID] = p
		sum += p.Liability
	}
	if sum != 1001 {
		t.Fatalf("liabilities sum to %d, want 1001", sum)
	}
	if byUser[A].Liability != 500 || byUser[B].Liability != 501 {
		t.Fatalf("liabilities = %+v, want A:500 B:501", byUser)
	}
}

// TestSettleSummaryReflectsNetPosition checks that SettleSummary classifies
// debtors, creditors, and already-settled participants correctly.
func TestSettleSummaryReflectsNetPosition(t *testing.T) {
	positions := []Position{
		{UserID: 1, Liability: 1000, Paid: 2000, Net: -1000},
		{UserID: 2, Liability: 1000, Paid: 0, Net: 1000},
		{UserID: 3, Liability: 500, Paid: 500, Net: 0},
	}
	summary := SettleSummary(positions)
	byUser := make(map[int64]SettleSummaryEntry, len(summary))
	for _, e := range summary {
		byUser[e.UserID] = e
	}
	if byUser[1].Status != SettleStatusCreditor || byUser[1].AmountCents != 0 {
		t.Fatalf("creditor entry = %+v", byUser[1])
	}
	if byUser[2].Status != SettleStatusPending || byUser[2].AmountCents != 1000 {
		t.Fatalf("debtor entry = %+v", byUser[2])
	}
	if byUser[3].Status != SettleStatusSettled || !byUser[3].IsSettled {
		t.Fatalf("settled entry = %+v", byUser[3])
	}
}
