package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// zeroDecimal lists currencies without minor units.
var zeroDecimal = map[string]bool{"JPY": true, "KRW": true}

// FmtCurrency formats amount in minor units for basic currencies.
// Example: FmtCurrency(12345, "JPY", "ja") => "¥12,345"
func FmtCurrency(minor int64, currency, lang string) string {
	currency = strings.ToUpper(currency)
	switch currency {
	case "JPY":
		return fmt.Sprintf("¥%s", thousandSep(minor))
	case "USD", "CAD":
		// assume cents; format with 2 decimals
		neg := minor < 0
		if neg {
			minor = -minor
		}
		head := thousandSep(minor / 100)
		tail := fmt.Sprintf("%02d", minor%100)
		prefix := "$"
		if currency == "CAD" {
			prefix = "CA$"
		}
		if neg {
			return "-" + prefix + head + "." + tail
		}
		return prefix + head + "." + tail
	default:
		// generic minor units
		return fmt.Sprintf("%s %s", currency, thousandSep(minor))
	}
}

// FmtMoney formats a decimal amount string ("600.0") as returned by the
// Storefront API. Unparseable amounts are returned verbatim with the code.
func FmtMoney(amount, currency, lang string) string {
	minor, err := minorUnits(amount, strings.ToUpper(currency))
	if err != nil {
		return strings.TrimSpace(amount + " " + currency)
	}
	return FmtCurrency(minor, currency, lang)
}

func minorUnits(amount, currency string) (int64, error) {
	amount = strings.TrimSpace(amount)
	neg := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	var out int64
	if zeroDecimal[currency] {
		out = w
	} else {
		frac = (frac + "00")[:2]
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
		out = w*100 + f
	}
	if neg {
		out = -out
	}
	return out, nil
}

func thousandSep(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FmtDate formats time in a locale-friendly short form.
func FmtDate(t time.Time, lang string) string {
	switch strings.ToLower(lang) {
	case "ja":
		return t.Format("2006-01-02")
	default:
		return t.Format("Jan 2, 2006")
	}
}
