package receipt

import (
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		normalFull  bool
		extraFull   bool
		want        Status
		wantLocking bool
	}{
		{"both matched", true, true, StatusCompleted, true},
		{"normal only", true, false, StatusNormalCompleted, true},
		{"extra only", false, true, StatusExtraCompleted, true},
		{"neither", false, false, StatusPartial, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.normalFull, tt.extraFull)
			if got != tt.want {
				t.Errorf("Evaluate(%v, %v) = %s, want %s", tt.normalFull, tt.extraFull, got, tt.want)
			}
			if got.IsTerminal() != tt.wantLocking {
				t.Errorf("Status %s IsTerminal() = %v, want %v", got, got.IsTerminal(), tt.wantLocking)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	for _, normal := range []bool{true, false} {
		for _, extra := range []bool{true, false} {
			first := Evaluate(normal, extra)
			second := Evaluate(normal, extra)
			if first != second {
				t.Errorf("Evaluate(%v, %v) not stable: %s then %s", normal, extra, first, second)
			}
		}
	}
}

func TestEvaluateCarton(t *testing.T) {
	tests := []struct {
		name     string
		pending  float64
		returned float64
		want     Status
	}{
		{"exact", 40, 40, StatusCompleted},
		{"within tolerance", 40, 39.9995, StatusCompleted},
		{"short", 40, 25, StatusPartial},
		{"nothing pending consumed", 100, 0.5, StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCarton(tt.pending, tt.returned); got != tt.want {
				t.Errorf("EvaluateCarton(%v, %v) = %s, want %s", tt.pending, tt.returned, got, tt.want)
			}
		})
	}
}
