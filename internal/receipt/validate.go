package receipt

import (
	"errors"
	"fmt"
	"math"
)

const shareTolerance = 1e-4

// ValidationError reports a single structural violation of a receipt payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every violation found by Validate.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "validation failed"
	}
	return errs[0].Error()
}

// Validate checks the structural rules from the bill-splitting payload:
// non-negative prices, positive quantities, and split-sum invariants.
// It does not require participants to already be known to the receipt, and
// Store.Update does not check that either; Store.RemoveMember is what keeps
// a referenced participant from being detached (memberHasObligations).
func Validate(items []Item, charges []Charge, payments []Payment) error {
	var errs ValidationErrors

	for i, item := range items {
		if item.UnitPriceCents < 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("items[%d].unit_price_cents", i),
				Message: "must be non-negative",
			})
		}
		if item.Quantity <= 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must be positive",
			})
		}
		if len(item.Splits) == 0 {
			continue
		}
		var sum float64
		for j, s := range item.Splits {
			if s.ShareQuantity <= 0 {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("items[%d].splits[%d].share_quantity", i, j),
					Message: "must be positive",
				})
			}
			sum += s.ShareQuantity
		}
		if math.Abs(sum-item.Quantity) > shareTolerance {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("items[%d].splits", i),
				Message: fmt.Sprintf("share quantities sum to %.4f, want %.4f", sum, item.Quantity),
			})
		}
	}

	for i, charge := range charges {
		if charge.UnitPriceCents < 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("charges[%d].unit_price_cents", i),
				Message: "must be non-negative",
			})
		}
		if len(charge.Splits) == 0 {
			continue
		}
		var sum float64
		for j, s := range charge.Splits {
			if s.Weight <= 0 {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("charges[%d].splits[%d].weight", i, j),
					Message: "must be positive",
				})
			}
			sum += s.Weight
		}
		if math.Abs(sum-1.0) > shareTolerance {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("charges[%d].splits", i),
				Message: fmt.Sprintf("weights sum to %.4f, want 1.0", sum),
			})
		}
	}

	for i, p := range payments {
		if p.AmountPaidCents < 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("payments[%d].amount_paid_cents", i),
				Message: "must be non-negative",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ErrOrphanedMember is returned when removing a participant would leave
// dangling references in splits or payments.
var ErrOrphanedMember = errors.New("receipt: member has obligations and cannot be removed")

// memberHasObligations reports ErrOrphanedMember if userID appears in any
// item split, charge split, or payment. ReceiptStore.RemoveMember calls
// this before detaching a participant.
func memberHasObligations(userID int64, items []Item, charges []Charge, payments []Payment) error {
	for _, item := range items {
		for _, s := range item.Splits {
			if s.UserID == userID {
				return ErrOrphanedMember
			}
		}
	}
	for _, charge := range charges {
		for _, s := range charge.Splits {
			if s.UserID == userID {
				return ErrOrphanedMember
			}
		}
	}
	for _, p := range payments {
		if p.UserID == userID {
			return ErrOrphanedMember
		}
	}
	return nil
}
