package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"12.345", "12.35", true}, // rounds half-up
		{"12.344", "12.34", true},
		{"18000", "18000", true},
		{" 500 ", "500", true},
		{"", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"-5", "", false},
		{"+5", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("ParseAmount(%q) error %v", tc.in, err)
				}
				want, _ := decimal.NewFromString(tc.want)
				if !got.Equal(want) {
					t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseAmount(%q) expected error, got %s", tc.in, got)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	d := decimal.RequireFromString("10.005")
	if got := Round2(d); got.String() != "10.01" {
		t.Fatalf("Round2 = %s, want 10.01", got)
	}
}
