package transactions

import (
	"strings"
	"testing"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/validate"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

var now = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func sampleTransactions() []valuation.Transaction {
	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			panic(err)
		}
		return d
	}
	return []valuation.Transaction{
		{Price: 18750, SaleDate: day("2024-11-02"), Odometer: 38112, ConditionGrade: 37, Region: "NE"},
		{Price: 17200, SaleDate: day("2024-10-18"), Odometer: 52990, ConditionGrade: 3.1, Region: "SE"},
		{Price: 18100, SaleDate: day("2024-09-30"), Odometer: 44215, ConditionGrade: 41, Region: "SW"},
		{Price: 16450, SaleDate: day("2024-09-12"), Odometer: 61020, ConditionGrade: 2.8, Region: "MW"},
		{Price: 19000, SaleDate: day("2024-08-01"), Odometer: 30500, ConditionGrade: 4.5, Region: "NE"},
	}
}

func TestApply_GradeFilter(t *testing.T) {
	txs := sampleTransactions()
	f, err := ParseFilter("grade", "3.5", now)
	if err != nil {
		t.Fatal(err)
	}

	kept := Apply(txs, f)
	if len(kept) != 3 {
		t.Fatalf("kept %d transactions, want 3", len(kept))
	}
	// Original relative order is preserved; both scales are normalized
	// before comparison.
	wantPrices := []float64{18750, 18100, 19000}
	for i, tx := range kept {
		if tx.Price != wantPrices[i] {
			t.Errorf("kept[%d].Price = %g, want %g", i, tx.Price, wantPrices[i])
		}
		g, err := validate.NormalizeGrade(tx.ConditionGrade)
		if err != nil || g < 3.5 {
			t.Errorf("kept[%d] grade %g normalizes below the 3.5 threshold", i, tx.ConditionGrade)
		}
	}
}

func TestApply_OdometerFilter(t *testing.T) {
	f, err := ParseFilter("odometer", "45000", now)
	if err != nil {
		t.Fatal(err)
	}
	kept := Apply(sampleTransactions(), f)
	if len(kept) != 3 {
		t.Fatalf("kept %d transactions, want 3", len(kept))
	}
	for _, tx := range kept {
		if tx.Odometer > 45000 {
			t.Errorf("kept transaction with odometer %d above ceiling", tx.Odometer)
		}
	}
}

func TestApply_DateFilterCalendarDay(t *testing.T) {
	f, err := ParseFilter("date", "2024-09-30", now)
	if err != nil {
		t.Fatal(err)
	}
	kept := Apply(sampleTransactions(), f)
	// The 2024-09-30 sale itself is kept; day precision, inclusive floor.
	if len(kept) != 3 {
		t.Fatalf("kept %d transactions, want 3", len(kept))
	}
}

func TestApply_RegionFilter(t *testing.T) {
	f, err := ParseFilter("region", "ne", now)
	if err != nil {
		t.Fatal(err)
	}
	kept := Apply(sampleTransactions(), f)
	if len(kept) != 2 {
		t.Fatalf("kept %d transactions, want 2", len(kept))
	}
	for _, tx := range kept {
		if tx.Region != "NE" {
			t.Errorf("kept transaction in region %q", tx.Region)
		}
	}
}

func TestApply_NilFilterReturnsInput(t *testing.T) {
	txs := sampleTransactions()
	if got := Apply(txs, nil); len(got) != len(txs) {
		t.Errorf("nil filter dropped transactions: %d of %d", len(got), len(txs))
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	cases := [][2]string{
		{"grade", "7"},
		{"odometer", "-5"},
		{"date", "2018-10-07"},
		{"region", "EU"},
		{"price", "10000"},
	}
	for _, tc := range cases {
		if _, err := ParseFilter(tc[0], tc[1], now); err == nil {
			t.Errorf("ParseFilter(%q, %q) = nil, want error", tc[0], tc[1])
		}
	}
}

func TestFilter_ValueRoundTrip(t *testing.T) {
	for _, tc := range [][2]string{
		{"grade", "4.0"},
		{"odometer", "50000"},
		{"date", "2024-12-01"},
		{"region", "NE"},
	} {
		f, err := ParseFilter(tc[0], tc[1], now)
		if err != nil {
			t.Fatalf("ParseFilter(%q, %q): %v", tc[0], tc[1], err)
		}
		if got := f.Value(); got != tc[1] {
			t.Errorf("Value() = %q, want %q", got, tc[1])
		}
	}
}

func TestPage(t *testing.T) {
	txs := make([]valuation.Transaction, 23)
	for i := range txs {
		txs[i].Price = float64(i + 1)
	}

	items, totalPages, current, start := Page(txs, 1)
	if totalPages != 3 || current != 1 || start != 0 || len(items) != PageSize {
		t.Fatalf("page 1: items=%d total=%d current=%d start=%d", len(items), totalPages, current, start)
	}

	items, _, current, start = Page(txs, 3)
	if current != 3 || start != 20 || len(items) != 3 {
		t.Fatalf("page 3: items=%d current=%d start=%d", len(items), current, start)
	}

	_, _, current, _ = Page(txs, 99)
	if current != 3 {
		t.Errorf("page 99 clamped to %d, want 3", current)
	}
	_, _, current, _ = Page(txs, 0)
	if current != 1 {
		t.Errorf("page 0 clamped to %d, want 1", current)
	}

	items, totalPages, current, _ = Page(nil, 1)
	if totalPages != 1 || current != 1 || len(items) != 0 {
		t.Errorf("empty list: items=%d total=%d current=%d", len(items), totalPages, current)
	}
}

func TestRenderOne_IncludesExtraFields(t *testing.T) {
	tx := valuation.Transaction{
		Price:          18750,
		Odometer:       38112,
		ConditionGrade: 37,
		Location:       "Manheim Pennsylvania",
		Extra:          map[string]string{"sellerType": "Lease", "hasAirConditioning": "yes"},
	}
	text := RenderOne(4, tx)

	for _, want := range []string{
		"Transaction #4:",
		"Price: $18,750.00",
		"Mileage: 38,112 miles",
		"Condition: 3.7/5.0",
		"Seller type: Lease",
		"Has air conditioning: yes",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered transaction missing %q", want)
		}
	}
}

func TestCountsLine(t *testing.T) {
	if got := CountsLine(10, 0, 23, nil); got != "Showing 10 of 23 transactions." {
		t.Errorf("unfiltered counts line = %q", got)
	}
	f, err := ParseFilter("grade", "4.0", now)
	if err != nil {
		t.Fatal(err)
	}
	got := CountsLine(5, 7, 23, f)
	if !strings.Contains(got, "5 of 7") || !strings.Contains(got, "23 total") {
		t.Errorf("filtered counts line = %q", got)
	}
}
