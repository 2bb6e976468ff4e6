package money

import "testing"

func TestAllocateSumsToTotal(t *testing.T) {
	cases := []struct {
		name    string
		total   int64
		weights []float64
	}{
		{"even three-way", 100, []float64{1, 1, 1}},
		{"uneven weights", 999, []float64{1, 2, 3}},
		{"single participant", 1500, []float64{1}},
		{"fractional quantities", 1001, []float64{0.5, 1.5, 2}},
		{"zero total", 0, []float64{1, 1}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			parts := Allocate(c.total, c.weights)
			if got := Sum(parts); got != c.total {
				t.Fatalf("Sum(Allocate(%d, %v)) = %d, want %d", c.total, c.weights, got, c.total)
			}
			for _, p := range parts {
				if p < 0 {
					t.Fatalf("Allocate(%d, %v) produced negative part %d", c.total, c.weights, p)
				}
			}
		})
	}
}

func TestAllocateEvenSplitRemainderGoesToLowestIndex(t *testing.T) {
	parts := Allocate(100, []float64{1, 1, 1})
	want := []int64{34, 33, 33}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("Allocate(100, [1,1,1]) = %v, want %v", parts, want)
		}
	}
}

func TestAllocateZeroWeightGetsNothing(t *testing.T) {
	parts := Allocate(100, []float64{1, 0, 1})
	if parts[1] != 0 {
		t.Fatalf("zero-weight participant got %d, want 0", parts[1])
	}
	if Sum(parts) != 100 {
		t.Fatalf("Sum = %d, want 100", Sum(parts))
	}
}

func TestIntegerScale(t *testing.T) {
	cases := []struct {
		unitPriceCents int64
		quantity       float64
		want           int64
	}{
		{500, 2, 1000},
		{333, 1.5, 499},
		{0, 5, 0},
		{100, 0, 0},
	}
	for _, c := range cases {
		if got := IntegerScale(c.unitPriceCents, c.quantity); got != c.want {
			t.Fatalf("IntegerScale(%d, %v) = %d, want %d", c.unitPriceCents, c.quantity, got, c.want)
		}
	}
}
