package ledger

import "testing"

func sumObligations(obs []Obligation, userID int64) (owed, owes int64) {
	for _, o := range obs {
		if o.DebtorID == userID {
			owes += o.AmountCents
		}
		if o.CreditorID == userID {
			owed += o.AmountCents
		}
	}
	return
}

func TestBuildBalancesConserved(t *testing.T) {
	positions := map[int64]int64{
		1: 3000,
		2: -1000,
		3: -2000,
	}
	obs := Build(positions)
	if len(obs) == 0 {
		t.Fatal("expected obligations")
	}
	for userID, net := range positions {
		owed, owes := sumObligations(obs, userID)
		got := owes - owed
		if got != net {
			t.Fatalf("user %d: net from obligations = %d, want %d", userID, got, net)
		}
	}
}

func TestBuildDropsZeroNet(t *testing.T) {
	obs := Build(map[int64]int64{1: 0, 2: 500, 3: -500})
	for _, o := range obs {
		if o.DebtorID == 1 || o.CreditorID == 1 {
			t.Fatalf("zero-net user should not appear in obligations: %+v", o)
		}
	}
}

func TestBuildDeterministicOrdering(t *testing.T) {
	positions := map[int64]int64{5: 100, 1: 100, 3: -100, 9: -100}
	obs := Build(positions)
	if len(obs) != 2 {
		t.Fatalf("expected 2 obligations, got %d", len(obs))
	}
	if obs[0].DebtorID != 1 || obs[1].DebtorID != 5 {
		t.Fatalf("expected debtors sorted ascending, got %+v", obs)
	}
}

func TestBuildEntryCountBound(t *testing.T) {
	positions := map[int64]int64{1: 100, 2: 100, 3: -150, 4: -50}
	obs := Build(positions)
	if len(obs) > len(positions)-1 {
		t.Fatalf("emitted %d obligations, expected at most %d", len(obs), len(positions)-1)
	}
}
