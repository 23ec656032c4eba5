package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestPlainCalculate(t *testing.T) {
	cases := []struct {
		price string
		qty   int64
		want  string
	}{
		{"100.00", 10, "1000.00"},
		{"50.00", 10, "500.00"},
		{"0.01", 3, "0.03"},
		{"19.99", 1, "19.99"},
	}
	for _, c := range cases {
		got := Plain{}.Calculate(dec(t, c.price), c.qty)
		if !got.Equal(dec(t, c.want)) {
			t.Fatalf("Plain(%s x %d) = %s, want %s", c.price, c.qty, got, c.want)
		}
	}
}

func TestFeeCalculate(t *testing.T) {
	fee := Fee{Rate: dec(t, "0.03")}
	cases := []struct {
		price string
		qty   int64
		want  string
	}{
		{"100.00", 10, "1030.00"},
		{"200.00", 1, "206.00"},
		{"33.33", 3, "102.9897"},
	}
	for _, c := range cases {
		got := fee.Calculate(dec(t, c.price), c.qty)
		if !got.Equal(dec(t, c.want)) {
			t.Fatalf("Fee(%s x %d) = %s, want %s", c.price, c.qty, got, c.want)
		}
	}
}

func TestFeeZeroRateMatchesPlain(t *testing.T) {
	price := dec(t, "123.45")
	plain := Plain{}.Calculate(price, 7)
	withFee := Fee{Rate: decimal.Zero}.Calculate(price, 7)
	if !plain.Equal(withFee) {
		t.Fatalf("zero-rate fee %s differs from plain %s", withFee, plain)
	}
}

func TestFeeNoBinaryDrift(t *testing.T) {
	// 0.1 * 3 * 1.03 must come out exact, not 0.30900000000000005.
	got := Fee{Rate: dec(t, "0.03")}.Calculate(dec(t, "0.1"), 3)
	if !got.Equal(dec(t, "0.309")) {
		t.Fatalf("got %s, want 0.309", got)
	}
}
