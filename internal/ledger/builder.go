package ledger

import "sort"

// Obligation is one emitted debtor -> creditor entry before persistence.
type Obligation struct {
	DebtorID    int64
	CreditorID  int64
	AmountCents int64
}

// Build runs the greedy two-pointer debtor/creditor matching algorithm:
// given net positions (positive = owes, negative = owed), it emits the
// minimal set of pairwise obligations that reproduce those net positions.
// Positions that net to zero are dropped. The result is deterministic:
// debtors and creditors are each sorted by ascending user ID before
// matching.
func Build(netPositions map[int64]int64) []Obligation {
	type balance struct {
		userID int64
		amount int64
	}

	var debtors, creditors []balance
	for userID, net := range netPositions {
		switch {
		case net > 0:
			debtors = append(debtors, balance{userID, net})
		case net < 0:
			creditors = append(creditors, balance{userID, -net})
		}
	}

	sort.Slice(debtors, func(i, j int) bool { return debtors[i].userID < debtors[j].userID })
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].userID < creditors[j].userID })

	var obligations []Obligation
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]
		amount := d.amount
		if c.amount < amount {
			amount = c.amount
		}
		if amount > 0 {
			obligations = append(obligations, Obligation{
				DebtorID:    d.userID,
				CreditorID:  c.userID,
				AmountCents: amount,
			})
		}
		d.amount -= amount
		c.amount -= amount
		if d.amount == 0 {
			i++
		}
		if c.amount == 0 {
			j++
		}
	}

	return obligations
}
