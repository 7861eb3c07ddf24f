package erpsync

import "testing"

func TestComputeAmountTTC(t *testing.T) {
	tests := []struct {
		name     string
		amountHT float64
		vatRate  float64
		want     float64
	}{
		{"standard rate", 250, 20, 300},
		{"reduced rate", 100, 5.5, 105.5},
		{"zero vat", 99.99, 0, 99.99},
		{"rounding up", 33.33, 20, 40},
		{"rounding cents", 10.01, 10, 11.01},
		{"zero amount", 0, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAmountTTC(tt.amountHT, tt.vatRate)
			if got != tt.want {
				t.Errorf("ComputeAmountTTC(%v, %v) = %v, want %v", tt.amountHT, tt.vatRate, got, tt.want)
			}
		})
	}
}

func TestComputeAmountTTCAvoidsFloatDrift(t *testing.T) {
	// 0.1+0.2 style drift should not leak into stored amounts.
	got := ComputeAmountTTC(0.1, 200)
	if got != 0.3 {
		t.Errorf("ComputeAmountTTC(0.1, 200) = %v, want 0.3", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.005); got != 1.01 {
		t.Errorf("Round2(1.005) = %v, want 1.01", got)
	}
	if got := Round2(-2.345); got != -2.35 {
		t.Errorf("Round2(-2.345) = %v, want -2.35", got)
	}
	if got := Round2(7); got != 7 {
		t.Errorf("Round2(7) = %v, want 7", got)
	}
}

func TestParseAmount(t *testing.T) {
	if v, err := ParseAmount("250.50"); err != nil || v != 250.5 {
		t.Errorf("ParseAmount(250.50) = %v, %v", v, err)
	}
	if v, err := ParseAmount("250,50"); err != nil || v != 250.5 {
		t.Errorf("ParseAmount(250,50) = %v, %v", v, err)
	}
	if v, err := ParseAmount(" 12 "); err != nil || v != 12 {
		t.Errorf("ParseAmount(' 12 ') = %v, %v", v, err)
	}
	if _, err := ParseAmount(""); err == nil {
		t.Error("ParseAmount(\"\") should fail")
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Error("ParseAmount(abc) should fail")
	}
}

func TestValidatePurchaseForm(t *testing.T) {
	if v, err := ValidatePurchaseForm("Total", "2025-01-15", "250,50"); err != nil || v != 250.5 {
		t.Errorf("valid form = %v, %v", v, err)
	}
	if _, err := ValidatePurchaseForm("", "2025-01-15", "10"); err == nil {
		t.Error("missing vendor should fail")
	}
	if _, err := ValidatePurchaseForm("Total", "  ", "10"); err == nil {
		t.Error("missing date should fail")
	}
	if _, err := ValidatePurchaseForm("Total", "2025-01-15", "dix"); err == nil {
		t.Error("non-numeric amount should fail")
	}
}
