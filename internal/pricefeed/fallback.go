package pricefeed

import (
	"strings"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

var fallbackTable = map[string][2]string{
	"BTC":  {"64230", "2.5"},
	"ETH":  {"3450", "1.2"},
	"SOL":  {"145", "-0.5"},
	"XRP":  {"0.62", "0.1"},
	"DOGE": {"0.12", "5.0"},
}

// FallbackQuote returns the static quote for a symbol.
func FallbackQuote(symbol string) (models.Quote, bool) {
	symbol = strings.ToUpper(symbol)
	row, ok := fallbackTable[symbol]
	if !ok {
		return models.Quote{}, false
	}
	return models.Quote{
		Symbol:        symbol,
		Price:         decimal.RequireFromString(row[0]),
		ChangePercent: decimal.RequireFromString(row[1]),
		Source:        models.QuoteSourceFallback,
	}, true
}
