package valuation

import (
	"fmt"
	"time"
)

// Vehicle describes the vehicle a valuation applies to.
type Vehicle struct {
	Year         int    `json:"year,omitempty"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Trim         string `json:"trim,omitempty"`
	VIN          string `json:"vin,omitempty"`
	Style        string `json:"style,omitempty"`
	EngineSize   string `json:"engineSize,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Drivetrain   string `json:"drivetrain,omitempty"`
}

// Description returns "2020 Honda Accord EX-L" style text, or the VIN
// when year/make/model are absent.
func (v Vehicle) Description() string {
	if v.Year == 0 && v.Make == "" && v.Model == "" {
		return v.VIN
	}
	s := fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	if v.Trim != "" {
		s += " " + v.Trim
	}
	return s
}

// PriceBand is an average with its rough/clean bounds.
type PriceBand struct {
	Average float64 `json:"average,omitempty"`
	Rough   float64 `json:"rough,omitempty"`
	Clean   float64 `json:"clean,omitempty"`
}

// Wholesale groups the wholesale price estimates.
type Wholesale struct {
	AggregateAverage *PriceBand `json:"aggregateAverage,omitempty"`
	AdjustedMMR      *PriceBand `json:"adjustedMMR,omitempty"`
	BaseMMR          *PriceBand `json:"baseMMR,omitempty"`
}

// Adjustment is a pricing adjustment factor that was applied to the
// base estimate (e.g. color, grade, region).
type Adjustment struct {
	Factor string  `json:"factor"`
	Value  string  `json:"value,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// PricePoint is a historical price/mileage snapshot.
type PricePoint struct {
	Price    float64 `json:"price,omitempty"`
	Odometer int     `json:"odometer,omitempty"`
}

// Historical holds snapshots at the provider's fixed lookback windows.
type Historical struct {
	Last30Days *PricePoint `json:"last30Days,omitempty"`
	LastMonth  *PricePoint `json:"lastMonth,omitempty"`
	Last6      *PricePoint `json:"last6Months,omitempty"`
	LastYear   *PricePoint `json:"lastYear,omitempty"`
}

// Forecast holds the provider's projected prices.
type Forecast struct {
	NextMonth float64 `json:"nextMonth,omitempty"`
	NextYear  float64 `json:"nextYear,omitempty"`
}

// Transaction is a single auction sale. ConditionGrade arrives either
// on a 0-5 decimal scale or a 0-50 integer scale depending on the
// provider endpoint; it is stored as received and normalized by callers
// before display or filtering.
type Transaction struct {
	Price          float64           `json:"price,omitempty"`
	SaleDate       time.Time         `json:"saleDate,omitempty"`
	Odometer       int               `json:"odometer,omitempty"`
	ConditionGrade float64           `json:"conditionGrade,omitempty"`
	Location       string            `json:"location,omitempty"`
	Region         string            `json:"region,omitempty"`
	Lane           string            `json:"lane,omitempty"`
	Seller         string            `json:"sellerName,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Statistics are the provider's summary figures over the transaction
// sample. Absent statistics are derived at format time; they are never
// written back onto the record.
type Statistics struct {
	AveragePrice     float64 `json:"averagePrice,omitempty"`
	AverageOdometer  int     `json:"averageOdometer,omitempty"`
	AverageGrade     float64 `json:"averageConditionGrade,omitempty"`
	TransactionCount int     `json:"transactionCount,omitempty"`
}

// MarketSummary carries the transaction sample and its statistics.
type MarketSummary struct {
	Transactions []Transaction `json:"transactions,omitempty"`
	Statistics   *Statistics   `json:"statistics,omitempty"`
}

// Record is the result of a valuation lookup. Immutable once received.
type Record struct {
	Vehicle     Vehicle       `json:"vehicle"`
	Wholesale   *Wholesale    `json:"wholesale,omitempty"`
	Adjustments []Adjustment  `json:"adjustments,omitempty"`
	Historical  *Historical   `json:"historical,omitempty"`
	Forecast    *Forecast     `json:"forecast,omitempty"`
	Market      MarketSummary `json:"market"`
}

// Filters are the optional query attributes of a lookup. Zero values
// mean "not set"; invalid user input is rejected before ever reaching a
// Filters value.
type Filters struct {
	Color    string   `json:"color,omitempty"`
	Grade    *float64 `json:"grade,omitempty"`
	Odometer *int     `json:"odometer,omitempty"`
	Region   string   `json:"region,omitempty"`
	Date     string   `json:"date,omitempty"` // ISO calendar date
}

// IsZero reports whether no filter attribute is set.
func (f Filters) IsZero() bool {
	return f.Color == "" && f.Grade == nil && f.Odometer == nil && f.Region == "" && f.Date == ""
}

// VINRequest identifies a VIN lookup.
type VINRequest struct {
	VIN          string
	Subseries    string
	Transmission string
	Filters      Filters
}

// YMMRequest identifies a Year/Make/Model lookup.
type YMMRequest struct {
	Year    int
	Make    string
	Model   string
	Filters Filters
}

// Provider is the valuation data source abstraction used by the bot.
// Implementations handle authentication, timeouts and transport detail;
// callers only see a record, ErrNotFound, or a *ProviderError.
type Provider interface {
	ByVIN(req VINRequest) (*Record, error)
	ByYMM(req YMMRequest) (*Record, error)
}
