package manheim

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// The wire types mirror the provider's JSON. They are decoded exactly
// once, here, into valuation types with named fields; downstream code
// never re-checks key presence.

type wireRecord struct {
	Vehicle            *wireVehicle    `json:"vehicle"`
	WholesaleAverages  *wireWholesale  `json:"wholesaleAverages"`
	Adjustments        []wireAdjust    `json:"adjustments"`
	HistoricalAverages *wireHistorical `json:"historicalAverages"`
	Forecast           *wireForecast   `json:"forecast"`
	MarketSummary      *wireMarket     `json:"marketSummary"`
}

type wireVehicle struct {
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Trim         string `json:"trim"`
	VIN          string `json:"vin"`
	Style        string `json:"style"`
	EngineSize   string `json:"engineSize"`
	Transmission string `json:"transmission"`
	Drivetrain   string `json:"drivetrain"`
}

type wireBand struct {
	Average float64 `json:"average"`
	Rough   float64 `json:"rough"`
	Clean   float64 `json:"clean"`
}

type wireWholesale struct {
	AggregateAverage *wireBand `json:"aggregateAverage"`
	AdjustedMMR      *wireBand `json:"adjustedMMR"`
	BaseMMR          *wireBand `json:"baseMMR"`
}

type wireAdjust struct {
	Factor     string  `json:"factor"`
	Value      string  `json:"value"`
	Adjustment float64 `json:"adjustment"`
}

type wirePoint struct {
	Price    float64 `json:"price"`
	Odometer int     `json:"odometer"`
}

type wireHistorical struct {
	Last30Days *wirePoint `json:"last30Days"`
	LastMonth  *wirePoint `json:"lastMonth"`
	Last6      *wirePoint `json:"last6Months"`
	LastYear   *wirePoint `json:"lastYear"`
}

type wireForecast struct {
	NextMonth float64 `json:"nextMonth"`
	NextYear  float64 `json:"nextYear"`
}

type wireStats struct {
	AveragePrice     float64 `json:"averagePrice"`
	AverageOdometer  int     `json:"averageOdometer"`
	AverageGrade     float64 `json:"averageConditionGrade"`
	TransactionCount int     `json:"transactionCount"`
}

type wireMarket struct {
	Transactions []wireTransaction `json:"transactions"`
	Statistics   *wireStats        `json:"statistics"`
}

type wireTransaction struct {
	Price          float64
	SaleDate       string
	Odometer       int
	ConditionGrade float64
	Location       string
	Region         string
	Lane           string
	SellerName     string
	Extra          map[string]string
}

var knownTransactionKeys = map[string]bool{
	"price": true, "saleDate": true, "odometer": true, "conditionGrade": true,
	"location": true, "region": true, "lane": true, "sellerName": true,
}

// UnmarshalJSON keeps the named fields and collects every other
// non-empty key into Extra so unexpected descriptive fields still reach
// the detailed transaction view.
func (t *wireTransaction) UnmarshalJSON(data []byte) error {
	var known struct {
		Price          float64 `json:"price"`
		SaleDate       string  `json:"saleDate"`
		Odometer       int     `json:"odometer"`
		ConditionGrade float64 `json:"conditionGrade"`
		Location       string  `json:"location"`
		Region         string  `json:"region"`
		Lane           string  `json:"lane"`
		SellerName     string  `json:"sellerName"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	t.Price = known.Price
	t.SaleDate = known.SaleDate
	t.Odometer = known.Odometer
	t.ConditionGrade = known.ConditionGrade
	t.Location = known.Location
	t.Region = known.Region
	t.Lane = known.Lane
	t.SellerName = known.SellerName

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if knownTransactionKeys[k] || v == nil {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]string)
		}
		t.Extra[k] = s
	}
	return nil
}

func (w *wireRecord) toRecord() *valuation.Record {
	rec := &valuation.Record{}
	if v := w.Vehicle; v != nil {
		rec.Vehicle = valuation.Vehicle{
			Year:         v.Year,
			Make:         v.Make,
			Model:        v.Model,
			Trim:         v.Trim,
			VIN:          v.VIN,
			Style:        v.Style,
			EngineSize:   v.EngineSize,
			Transmission: v.Transmission,
			Drivetrain:   v.Drivetrain,
		}
	}
	if ws := w.WholesaleAverages; ws != nil {
		rec.Wholesale = &valuation.Wholesale{
			AggregateAverage: toBand(ws.AggregateAverage),
			AdjustedMMR:      toBand(ws.AdjustedMMR),
			BaseMMR:          toBand(ws.BaseMMR),
		}
	}
	for _, a := range w.Adjustments {
		rec.Adjustments = append(rec.Adjustments, valuation.Adjustment{
			Factor: a.Factor,
			Value:  a.Value,
			Amount: a.Adjustment,
		})
	}
	if h := w.HistoricalAverages; h != nil {
		rec.Historical = &valuation.Historical{
			Last30Days: toPoint(h.Last30Days),
			LastMonth:  toPoint(h.LastMonth),
			Last6:      toPoint(h.Last6),
			LastYear:   toPoint(h.LastYear),
		}
	}
	if f := w.Forecast; f != nil {
		rec.Forecast = &valuation.Forecast{NextMonth: f.NextMonth, NextYear: f.NextYear}
	}
	if m := w.MarketSummary; m != nil {
		for _, tx := range m.Transactions {
			rec.Market.Transactions = append(rec.Market.Transactions, valuation.Transaction{
				Price:          tx.Price,
				SaleDate:       parseSaleDate(tx.SaleDate),
				Odometer:       tx.Odometer,
				ConditionGrade: tx.ConditionGrade,
				Location:       tx.Location,
				Region:         tx.Region,
				Lane:           tx.Lane,
				Seller:         tx.SellerName,
				Extra:          tx.Extra,
			})
		}
		if s := m.Statistics; s != nil {
			rec.Market.Statistics = &valuation.Statistics{
				AveragePrice:     s.AveragePrice,
				AverageOdometer:  s.AverageOdometer,
				AverageGrade:     s.AverageGrade,
				TransactionCount: s.TransactionCount,
			}
		}
	}
	return rec
}

func toBand(b *wireBand) *valuation.PriceBand {
	if b == nil {
		return nil
	}
	return &valuation.PriceBand{Average: b.Average, Rough: b.Rough, Clean: b.Clean}
}

func toPoint(p *wirePoint) *valuation.PricePoint {
	if p == nil {
		return nil
	}
	return &valuation.PricePoint{Price: p.Price, Odometer: p.Odometer}
}

// parseSaleDate accepts RFC 3339 timestamps or bare calendar dates; an
// unparseable value yields the zero time, which formatting code skips.
func parseSaleDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	day := raw
	if i := strings.IndexByte(raw, 'T'); i > 0 {
		day = raw[:i]
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return ""
	}
}
