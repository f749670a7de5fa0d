package core

import (
	"errors"
	"testing"
)

func TestRate(t *testing.T) {
	cases := []struct {
		code string
		rate float64
		ok   bool
	}{
		{"GBP", 1.0, true},
		{"USD", 1.25, true},
		{"RMB", 9.2, true},
		{"EUR", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		rate, err := Rate(tc.code)
		if tc.ok {
			if err != nil || rate != tc.rate {
				t.Fatalf("Rate(%q) = %v, %v", tc.code, rate, err)
			}
		} else if !errors.Is(err, ErrUnknownCurrency) {
			t.Fatalf("Rate(%q) expected ErrUnknownCurrency, got %v", tc.code, err)
		}
	}
}

func TestBaseCurrencyRoundTrip(t *testing.T) {
	// Converting base-currency amounts to base must be lossless (rate 1.0).
	for _, cents := range []int64{0, 1, 5000, 150000, 999999} {
		got, err := ToBase(Money{Cents: cents}, BaseCurrency)
		if err != nil {
			t.Fatalf("ToBase: %v", err)
		}
		if got.Cents != cents {
			t.Fatalf("ToBase(%d, GBP) = %d, want identity", cents, got.Cents)
		}
	}
}

func TestConversion(t *testing.T) {
	// £1550.00 shown in USD at rate 1.25 is $1937.50.
	usd, err := FromBase(Money{Cents: 155000}, "USD")
	if err != nil {
		t.Fatalf("FromBase: %v", err)
	}
	if usd.Cents != 193750 {
		t.Fatalf("FromBase = %d cents, want 193750", usd.Cents)
	}

	// $125.00 ingested at rate 1.25 normalizes to £100.00.
	base, err := ToBase(Money{Cents: 12500}, "USD")
	if err != nil {
		t.Fatalf("ToBase: %v", err)
	}
	if base.Cents != 10000 {
		t.Fatalf("ToBase = %d cents, want 10000", base.Cents)
	}

	if _, err := FromBase(Money{Cents: 100}, "JPY"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestCurrencies(t *testing.T) {
	codes := Currencies()
	want := []string{"GBP", "RMB", "USD"}
	if len(codes) != len(want) {
		t.Fatalf("Currencies() = %v", codes)
	}
	for i, code := range want {
		if codes[i] != code {
			t.Fatalf("Currencies() = %v, want %v", codes, want)
		}
		if _, err := Symbol(code); err != nil {
			t.Fatalf("Symbol(%q): %v", code, err)
		}
	}
}
