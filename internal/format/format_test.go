package format

import (
	"testing"
	"time"
)

func TestFmtMoney(t *testing.T) {
	cases := []struct {
		amount, currency, lang, want string
	}{
		{"600.0", "USD", "en", "$600.00"},
		{"1949.95", "USD", "en", "$1,949.95"},
		{"12345", "JPY", "ja", "¥12,345"},
		{"-5.5", "USD", "en", "-$5.50"},
		{"10", "CAD", "en", "CA$10.00"},
		{"7.25", "EUR", "en", "EUR 725"},
		{"abc", "USD", "en", "abc USD"},
	}
	for _, tc := range cases {
		if got := FmtMoney(tc.amount, tc.currency, tc.lang); got != tc.want {
			t.Errorf("FmtMoney(%q, %q) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestFmtDate(t *testing.T) {
	d := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	if got := FmtDate(d, "ja"); got != "2025-01-12" {
		t.Fatalf("unexpected ja date %s", got)
	}
	if got := FmtDate(d, "en"); got != "Jan 12, 2025" {
		t.Fatalf("unexpected en date %s", got)
	}
}
