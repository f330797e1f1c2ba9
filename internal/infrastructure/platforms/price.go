package platforms

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparsablePrice indicates a price string no known convention matched.
var ErrUnparsablePrice = errors.New("platforms: unparsable price string")

// europeanPricePattern matches the "1.234,56" convention: dot or space as the
// thousands separator, comma as the decimal mark.
var europeanPricePattern = regexp.MustCompile(`^\d{1,3}([\s.]\d{3})*,\d{1,2}$`)

var currencySymbols = []struct {
	marker   string
	currency string
}{
	{"€", "EUR"},
	{"EUR", "EUR"},
	{"$", "USD"},
	{"USD", "USD"},
	{"£", "GBP"},
	{"GBP", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"CHF", "CHF"},
}

var priceStripper = regexp.MustCompile(`[€$£¥₹₽\s]|CHF|EUR|USD|GBP`)

// ParsePrice parses a raw price string as scraped from a page. Currency is
// detected by symbol presence first; the decimal convention is detected by the
// European thousands-separator pattern before falling back to the simple one.
// Returns the zero decimal and "" when nothing numeric survives.
func ParsePrice(raw string) (decimal.Decimal, string, error) {
	currency := DetectCurrency(raw)

	clean := priceStripper.ReplaceAllString(raw, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, currency, ErrUnparsablePrice
	}

	if europeanPricePattern.MatchString(clean) {
		clean = strings.NewReplacer(".", "", " ", "").Replace(clean)
		clean = strings.Replace(clean, ",", ".", 1)
	} else if strings.Contains(clean, ",") && strings.Contains(clean, ".") {
		// "1,234.56": comma is the thousands separator
		clean = strings.ReplaceAll(clean, ",", "")
	} else if strings.Contains(clean, ",") {
		// bare "29,99"
		clean = strings.Replace(clean, ",", ".", 1)
	}

	price, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, currency, ErrUnparsablePrice
	}
	return price, currency, nil
}

// DetectCurrency returns the ISO currency code implied by symbols in the
// string, or "" when no symbol is present.
func DetectCurrency(raw string) string {
	for _, sym := range currencySymbols {
		if strings.Contains(raw, sym.marker) {
			return sym.currency
		}
	}
	return ""
}
