package receipt

import "testing"

func TestValidateAcceptsBalancedSplits(t *testing.T) {
	items := []Item{{
		UnitPriceCents: 1000,
		Quantity:       2,
		Splits:         []ItemSplit{{UserID: 1, ShareQuantity: 1}, {UserID: 2, ShareQuantity: 1}},
	}}
	charges := []Charge{{
		UnitPriceCents: 500,
		Splits:         []ChargeSplit{{UserID: 1, Weight: 0.5}, {UserID: 2, Weight: 0.5}},
	}}
	payments := []Payment{{UserID: 1, AmountPaidCents: 1500}}
	if err := Validate(items, charges, payments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsShareQuantityMismatch(t *testing.T) {
	items := []Item{{
		UnitPriceCents: 1000,
		Quantity:       2,
		Splits:         []ItemSplit{{UserID: 1, ShareQuantity: 1}},
	}}
	err := Validate(items, nil, nil)
	if err == nil {
		t.Fatal("expected a validation error for splits not summing to quantity")
	}
}

func TestValidateRejectsChargeWeightsNotSummingToOne(t *testing.T) {
	charges := []Charge{{
		UnitPriceCents: 500,
		Splits:         []ChargeSplit{{UserID: 1, Weight: 0.5}, {UserID: 2, Weight: 0.2}},
	}}
	err := Validate(nil, charges, nil)
	if err == nil {
		t.Fatal("expected a validation error for weights not summing to 1.0")
	}
}

func TestValidateRejectsNegativePrice(t *testing.T) {
	items := []Item{{UnitPriceCents: -100, Quantity: 1}}
	err := Validate(items, nil, nil)
	if err == nil {
		t.Fatal("expected a validation error for negative unit price")
	}
}

func TestValidateRejectsNonPositiveQuantity(t *testing.T) {
	items := []Item{{UnitPriceCents: 100, Quantity: 0}}
	err := Validate(items, nil, nil)
	if err == nil {
		t.Fatal("expected a validation error for non-positive quantity")
	}
}

func TestValidateRejectsNegativePayment(t *testing.T) {
	payments := []Payment{{UserID: 1, AmountPaidCents: -1}}
	err := Validate(nil, nil, payments)
	if err == nil {
		t.Fatal("expected a validation error for negative payment")
	}
}

// TestMemberRemovalRejectedWhileReferencedInSplits is end-to-end scenario 7:
// a member appearing in an item's splits cannot be removed until the owner
// edits the item to drop them.
func TestMemberRemovalRejectedWhileReferencedInSplits(t *testing.T) {
	const A, B = 1, 2
	items := []Item{{
		UnitPriceCents: 1000,
		Quantity:       1,
		Splits:         []ItemSplit{{UserID: A, ShareQuantity: 1}, {UserID: B, ShareQuantity: 1}},
	}}

	if err := memberHasObligations(B, items, nil, nil); err == nil {
		t.Fatal("expected ErrOrphanedMember while B is referenced in an item split")
	}

	items[0].Splits = []ItemSplit{{UserID: A, ShareQuantity: 1}}
	if err := memberHasObligations(B, items, nil, nil); err != nil {
		t.Fatalf("expected removal to succeed once B is no longer referenced: %v", err)
	}
}
