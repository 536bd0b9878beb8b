package utils

import (
	"regexp"
	"strings"
)

// symbolPattern accepts plain US tickers and class shares ("BRK.B", "BF-B").
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// Common company-name aliases users type instead of the ticker.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"AMAZON":    "AMZN",
	"NVIDIA":    "NVDA",
	"FACEBOOK":  "META",
	"TESLA":     "TSLA",
	"NETFLIX":   "NFLX",
	"BRK-B":     "BRK.B",
	"BRK/B":     "BRK.B",
}

// companyDomains maps well-known tickers to their corporate website.
var companyDomains = map[string]string{
	"AAPL": "apple.com", "MSFT": "microsoft.com", "GOOGL": "google.com",
	"AMZN": "amazon.com", "NVDA": "nvidia.com", "META": "meta.com",
	"TSLA": "tesla.com", "BRK.B": "berkshirehathaway.com", "JPM": "jpmorganchase.com",
	"V": "visa.com", "WMT": "walmart.com", "MA": "mastercard.com",
	"PG": "pg.com", "JNJ": "jnj.com", "UNH": "unitedhealthgroup.com",
	"HD": "homedepot.com", "BAC": "bankofamerica.com", "XOM": "exxonmobil.com",
	"CVX": "chevron.com", "DIS": "disney.com", "NFLX": "netflix.com",
	"INTC": "intel.com", "AMD": "amd.com", "CSCO": "cisco.com",
}

// ExampleSymbols are suggested to callers who send an unresolvable symbol.
var ExampleSymbols = []string{"NVDA", "AAPL", "MSFT", "TSLA", "GOOGL"}

// NormalizeTicker normalizes a user-input ticker: trims, uppercases,
// strips a leading "$" and resolves aliases.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// IsValidSymbol reports whether a normalized ticker is well formed.
// It says nothing about whether the symbol is actually listed.
func IsValidSymbol(ticker string) bool {
	return symbolPattern.MatchString(ticker)
}

// CompanyDomain returns the known website domain for a ticker.
func CompanyDomain(ticker string) (string, bool) {
	d, ok := companyDomains[NormalizeTicker(ticker)]
	return d, ok
}

// CleanDomain strips scheme, "www." and any path from an LLM-supplied domain.
func CleanDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.Trim(d, "\"'`")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/ \n"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSuffix(d, ".")
}

// LogoURL returns the Clearbit logo URL for a domain.
func LogoURL(domain string) string {
	if domain == "" {
		return ""
	}
	return "https://logo.clearbit.com/" + domain
}
