// market/instruments.go
package market

import "strings"

// Category groups currency pairs by liquidity.
type Category string

const (
	Major  Category = "major"
	Minor  Category = "minor"
	Exotic Category = "exotic"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// PairInfo is the static metadata kept for every supported pair.
type PairInfo struct {
	Pair              string   `json:"pair" yaml:"pair"`
	PipDecimalPlace   int      `json:"pip_decimal_place" yaml:"pip_decimal_place"`
	Category          Category `json:"category" yaml:"category"`
	BaseCurrency      string   `json:"base_currency" yaml:"base_currency"`
	QuoteCurrency     string   `json:"quote_currency" yaml:"quote_currency"`
	AverageSpreadPips float64  `json:"average_spread_pips" yaml:"average_spread_pips"`
}

var Pairs = map[string]PairInfo{
	"EUR/USD": {Pair: "EUR/USD", PipDecimalPlace: 4, Category: Major, BaseCurrency: "EUR", QuoteCurrency: "USD", AverageSpreadPips: 1.0},
	"GBP/USD": {Pair: "GBP/USD", PipDecimalPlace: 4, Category: Major, BaseCurrency: "GBP", QuoteCurrency: "USD", AverageSpreadPips: 1.2},
	"USD/JPY": {Pair: "USD/JPY", PipDecimalPlace: 2, Category: Major, BaseCurrency: "USD", QuoteCurrency: "JPY", AverageSpreadPips: 1.0},
	"USD/CHF": {Pair: "USD/CHF", PipDecimalPlace: 4, Category: Major, BaseCurrency: "USD", QuoteCurrency: "CHF", AverageSpreadPips: 1.5},
	"AUD/USD": {Pair: "AUD/USD", PipDecimalPlace: 4, Category: Major, BaseCurrency: "AUD", QuoteCurrency: "USD", AverageSpreadPips: 1.2},
	"USD/CAD": {Pair: "USD/CAD", PipDecimalPlace: 4, Category: Major, BaseCurrency: "USD", QuoteCurrency: "CAD", AverageSpreadPips: 1.5},
	"NZD/USD": {Pair: "NZD/USD", PipDecimalPlace: 4, Category: Major, BaseCurrency: "NZD", QuoteCurrency: "USD", AverageSpreadPips: 1.8},

	"EUR/GBP": {Pair: "EUR/GBP", PipDecimalPlace: 4, Category: Minor, BaseCurrency: "EUR", QuoteCurrency: "GBP", AverageSpreadPips: 1.5},
	"EUR/JPY": {Pair: "EUR/JPY", PipDecimalPlace: 2, Category: Minor, BaseCurrency: "EUR", QuoteCurrency: "JPY", AverageSpreadPips: 1.5},
	"GBP/JPY": {Pair: "GBP/JPY", PipDecimalPlace: 2, Category: Minor, BaseCurrency: "GBP", QuoteCurrency: "JPY", AverageSpreadPips: 2.0},
	"EUR/CHF": {Pair: "EUR/CHF", PipDecimalPlace: 4, Category: Minor, BaseCurrency: "EUR", QuoteCurrency: "CHF", AverageSpreadPips: 2.0},
	"AUD/JPY": {Pair: "AUD/JPY", PipDecimalPlace: 2, Category: Minor, BaseCurrency: "AUD", QuoteCurrency: "JPY", AverageSpreadPips: 2.0},
	"EUR/AUD": {Pair: "EUR/AUD", PipDecimalPlace: 4, Category: Minor, BaseCurrency: "EUR", QuoteCurrency: "AUD", AverageSpreadPips: 2.5},

	"USD/TRY": {Pair: "USD/TRY", PipDecimalPlace: 4, Category: Exotic, BaseCurrency: "USD", QuoteCurrency: "TRY", AverageSpreadPips: 25.0},
	"USD/ZAR": {Pair: "USD/ZAR", PipDecimalPlace: 4, Category: Exotic, BaseCurrency: "USD", QuoteCurrency: "ZAR", AverageSpreadPips: 60.0},
	"USD/MXN": {Pair: "USD/MXN", PipDecimalPlace: 4, Category: Exotic, BaseCurrency: "USD", QuoteCurrency: "MXN", AverageSpreadPips: 40.0},
	"EUR/TRY": {Pair: "EUR/TRY", PipDecimalPlace: 4, Category: Exotic, BaseCurrency: "EUR", QuoteCurrency: "TRY", AverageSpreadPips: 35.0},
}

// NormalizePair accepts "EUR_USD", "eurusd" or "EUR/USD" and returns "EUR/USD".
func NormalizePair(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "/")
	if len(s) == 6 && !strings.Contains(s, "/") {
		s = s[:3] + "/" + s[3:]
	}
	return s
}

func Lookup(pair string) (PairInfo, bool) {
	info, ok := Pairs[pair]
	return info, ok
}

func IsExotic(pair string) bool {
	info, ok := Pairs[pair]
	return ok && info.Category == Exotic
}
