package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		price    string
		currency string
		wantErr  bool
	}{
		{name: "european thousands and decimal comma", raw: "1.234,56 €", price: "1234.56", currency: "EUR"},
		{name: "anglo thousands and decimal point", raw: "$1,234.56", price: "1234.56", currency: "USD"},
		{name: "plain decimal comma", raw: "49,99€", price: "49.99", currency: "EUR"},
		{name: "plain decimal point", raw: "49.99", price: "49.99", currency: ""},
		{name: "space as thousands separator", raw: "1 234,56 €", price: "1234.56", currency: "EUR"},
		{name: "integer price", raw: "120", price: "120", currency: ""},
		{name: "pound symbol", raw: "£15.00", price: "15", currency: "GBP"},
		{name: "currency code suffix", raw: "89,90 EUR", price: "89.9", currency: "EUR"},
		{name: "garbage", raw: "call for price", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency, err := ParsePrice(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparsablePrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.price, price.String())
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DetectCurrency("1.234,56 €"))
	assert.Equal(t, "USD", DetectCurrency("$9.99"))
	assert.Equal(t, "", DetectCurrency("9.99"))
}
