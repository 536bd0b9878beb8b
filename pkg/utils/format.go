package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatUSD formats an amount as US dollars with thousands separators.
// e.g., 1234567.891 → "$1,234,567.89"
func FormatUSD(amount float64) string {
	if amount < 0 {
		return "-$" + humanize.CommafWithDigits(-amount, 2)
	}
	return "$" + humanize.CommafWithDigits(amount, 2)
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatVolume formats a share count with thousands separators.
// e.g., 1500000 → "1,500,000"
func FormatVolume(volume int64) string {
	return humanize.Comma(volume)
}

// FormatVolumeCompact formats a share count with a metric suffix.
// e.g., 25300000 → "25.3M"
func FormatVolumeCompact(volume int64) string {
	if volume < 1000 {
		return strconv.FormatInt(volume, 10)
	}
	v, unit := humanize.ComputeSI(float64(volume))
	if unit == "G" {
		unit = "B"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + unit
}

// ParseNumber parses scraped numeric text such as "$1,234.50", "25,300,120" or "(12.5)".
// Parenthesised values are negative. It returns false for "N/A", "-" and empty cells.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "-", "--", "N/A", "n/a":
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// ParseVolume parses a scraped volume cell into a share count.
func ParseVolume(raw string) (int64, bool) {
	v, ok := ParseNumber(raw)
	if !ok || v < 0 {
		return 0, false
	}
	return int64(v), true
}

// ParseDecimal parses scraped price text into a decimal.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Round rounds to n decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
