// Package currency holds the static exchange-rate table and the conversion
// routine used for re-denominating the state tree.
package currency

import (
	"fmt"
	"sort"
)

// Info describes one supported currency. Rate is expressed as units of this
// currency per one Malaysian Ringgit (the base unit).
type Info struct {
	Code   string
	Symbol string
	Name   string
	Rate   float64
}

// UnknownCodeError reports a currency code missing from the table. Callers
// decide whether to surface it or fall back to a 1:1 rate.
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown currency code %q", e.Code)
}

var table = map[string]Info{
	"RM":  {Code: "RM", Symbol: "RM", Name: "Malaysian Ringgit", Rate: 1},
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 0.21},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.19},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound", Rate: 0.17},
	"SGD": {Code: "SGD", Symbol: "S$", Name: "Singapore Dollar", Rate: 0.29},
	"JPY": {Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Rate: 31.5},
	"CNY": {Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Rate: 1.52},
	"THB": {Code: "THB", Symbol: "฿", Name: "Thai Baht", Rate: 7.6},
	"IDR": {Code: "IDR", Symbol: "Rp", Name: "Indonesian Rupiah", Rate: 3200},
}

// Lookup returns the table entry for code.
func Lookup(code string) (Info, error) {
	info, ok := table[code]
	if !ok {
		return Info{}, &UnknownCodeError{Code: code}
	}
	return info, nil
}

// Codes returns every supported currency code in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Convert re-denominates amount from one currency to another by passing
// through the base unit. A same-code conversion returns amount unchanged so
// a no-op never accumulates floating-point drift. Unknown codes are reported
// instead of silently degrading to a 1:1 rate.
func Convert(amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	fromInfo, err := Lookup(from)
	if err != nil {
		return 0, err
	}
	toInfo, err := Lookup(to)
	if err != nil {
		return 0, err
	}
	base := amount / fromInfo.Rate
	return base * toInfo.Rate, nil
}

// Format renders amount with the currency's display symbol and two decimals.
// Unknown codes render the bare amount.
func Format(amount float64, code string) string {
	info, err := Lookup(code)
	if err != nil {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", info.Symbol, amount)
}
