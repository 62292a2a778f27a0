package format

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stupiduntilnot/auctionbot/internal/validate"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// Stats returns the record's summary statistics, deriving them from the
// transaction sample when the provider omitted them. The record itself
// is never written to; the derived figures are a read-only view.
func Stats(rec *valuation.Record) *valuation.Statistics {
	if rec.Market.Statistics != nil {
		return rec.Market.Statistics
	}
	txs := rec.Market.Transactions
	if len(txs) == 0 {
		return nil
	}

	prices := make([]float64, 0, len(txs))
	odometers := make([]float64, 0, len(txs))
	grades := make([]float64, 0, len(txs))
	for _, tx := range txs {
		if tx.Price > 0 {
			prices = append(prices, tx.Price)
		}
		if tx.Odometer > 0 {
			odometers = append(odometers, float64(tx.Odometer))
		}
		if g, err := validate.NormalizeGrade(tx.ConditionGrade); err == nil && g > 0 {
			grades = append(grades, g)
		}
	}

	return &valuation.Statistics{
		AveragePrice:     mean(prices),
		AverageOdometer:  int(math.Round(mean(odometers))),
		AverageGrade:     mean(grades),
		TransactionCount: len(txs),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
