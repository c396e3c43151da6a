package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData signals that fewer than two closing prices are
// available for a symbol. This is a normal outcome when the market is closed
// or the data feed lags; callers skip the evaluation instead of failing.
var ErrInsufficientData = errors.New("insufficient price data")

// Quote represents the latest state of a monitored index, recomputed on
// every tick and never persisted.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Current       decimal.Decimal `json:"current"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
}

// ComputeQuoteDelta derives a Quote from an ordered series of closing prices,
// oldest first. Change is the fractional move from the second-to-last close
// to the last one. Fewer than two points, or a zero previous close, yields
// ErrInsufficientData.
func ComputeQuoteDelta(name, symbol string, closes []decimal.Decimal) (Quote, error) {
	if len(closes) < 2 {
		return Quote{}, ErrInsufficientData
	}

	current := closes[len(closes)-1]
	previous := closes[len(closes)-2]
	if previous.IsZero() {
		return Quote{}, ErrInsufficientData
	}

	return Quote{
		Symbol:        symbol,
		Name:          name,
		Current:       current,
		PreviousClose: previous,
		Change:        current.Sub(previous).Div(previous),
	}, nil
}

// ChangePercent formats the fractional change as a signed percentage string,
// e.g. "+0.40%" or "-3.00%".
func (q Quote) ChangePercent() string {
	pct := q.Change.Mul(decimal.NewFromInt(100))
	formatted := pct.StringFixed(2) + "%"
	if !pct.IsNegative() {
		formatted = "+" + formatted
	}
	return formatted
}
