package types

import "testing"

func TestQtyEqual(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{100, 100, true},
		{100, 100.0005, true},
		{100, 99.9995, true},
		{100, 100.002, false},
		{0, 0.0005, true},
	}
	for _, c := range cases {
		if got := QtyEqual(c.a, c.b); got != c.want {
			t.Errorf("QtyEqual(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestQtyExceeds(t *testing.T) {
	if QtyExceeds(100, 100) {
		t.Error("a quantity at the ceiling must pass")
	}
	if QtyExceeds(100.0005, 100) {
		t.Error("rounding noise above the ceiling must pass")
	}
	if !QtyExceeds(100.01, 100) {
		t.Error("a real overshoot must be caught")
	}
}

func TestClampQty(t *testing.T) {
	if got := ClampQty(-0.0001); got != 0 {
		t.Errorf("ClampQty(-0.0001) = %v, want 0", got)
	}
	if got := ClampQty(5); got != 5 {
		t.Errorf("ClampQty(5) = %v, want 5", got)
	}
}

func TestMustMoney(t *testing.T) {
	if !MustMoney("12.50").Equal(NewMoney(12.5)) {
		t.Error("expected equal decimal values")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on malformed input")
		}
	}()
	MustMoney("not-a-number")
}
