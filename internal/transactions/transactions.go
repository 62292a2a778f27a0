// Package transactions filters and pages the auction transaction list
// of a valuation record.
package transactions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/stupiduntilnot/auctionbot/internal/validate"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// PageSize is the fixed number of transactions per page.
const PageSize = 10

// FilterKind names the single active filter dimension. Selecting a new
// filter replaces the previous one; filters never compose.
type FilterKind string

const (
	FilterNone     FilterKind = ""
	FilterGrade    FilterKind = "grade"    // normalized grade >= threshold
	FilterOdometer FilterKind = "odometer" // mileage <= threshold
	FilterDate     FilterKind = "date"     // sale date >= floor (calendar day)
	FilterRegion   FilterKind = "region"   // exact region match
)

// Filter is one parsed filter with its threshold.
type Filter struct {
	Kind     FilterKind
	Grade    float64
	Odometer int
	Date     time.Time
	Region   string
}

// ParseFilter validates a (kind, value) pair from a callback token.
func ParseFilter(kind, value string, now time.Time) (*Filter, error) {
	switch FilterKind(kind) {
	case FilterGrade:
		g, err := validate.Grade(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Kind: FilterGrade, Grade: g}, nil
	case FilterOdometer:
		o, err := validate.Odometer(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Kind: FilterOdometer, Odometer: o}, nil
	case FilterDate:
		d, err := validate.Date(value, now)
		if err != nil {
			return nil, err
		}
		return &Filter{Kind: FilterDate, Date: d}, nil
	case FilterRegion:
		r, err := validate.Region(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Kind: FilterRegion, Region: r}, nil
	default:
		return nil, fmt.Errorf("unknown transaction filter %q", kind)
	}
}

// Label describes the filter for the page header.
func (f *Filter) Label() string {
	switch f.Kind {
	case FilterGrade:
		return fmt.Sprintf("grade ≥ %.1f", f.Grade)
	case FilterOdometer:
		return fmt.Sprintf("mileage ≤ %s miles", commas(f.Odometer))
	case FilterDate:
		return "sold since " + f.Date.Format("2006-01-02")
	case FilterRegion:
		return "region " + f.Region
	default:
		return ""
	}
}

// Value renders the filter's threshold back into callback-token form,
// the inverse of ParseFilter's value argument.
func (f *Filter) Value() string {
	switch f.Kind {
	case FilterGrade:
		return strconv.FormatFloat(f.Grade, 'f', 1, 64)
	case FilterOdometer:
		return strconv.Itoa(f.Odometer)
	case FilterDate:
		return f.Date.Format("2006-01-02")
	case FilterRegion:
		return f.Region
	default:
		return ""
	}
}

// Apply keeps the transactions matching the filter, preserving original
// order. A nil filter returns the input unchanged.
func Apply(txs []valuation.Transaction, f *Filter) []valuation.Transaction {
	if f == nil || f.Kind == FilterNone {
		return txs
	}
	kept := make([]valuation.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.matches(tx) {
			kept = append(kept, tx)
		}
	}
	return kept
}

func (f *Filter) matches(tx valuation.Transaction) bool {
	switch f.Kind {
	case FilterGrade:
		g, err := validate.NormalizeGrade(tx.ConditionGrade)
		return err == nil && g >= f.Grade
	case FilterOdometer:
		return tx.Odometer <= f.Odometer
	case FilterDate:
		if tx.SaleDate.IsZero() {
			return false
		}
		d := tx.SaleDate
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return !day.Before(f.Date)
	case FilterRegion:
		return tx.Region == f.Region
	default:
		return true
	}
}

// Page slices a (filtered) list at the fixed page size. Out-of-range
// page requests clamp into [1, totalPages]. start is the zero-based
// index of the first returned transaction in the list.
func Page(txs []valuation.Transaction, page int) (items []valuation.Transaction, totalPages, current, start int) {
	totalPages = (len(txs) + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start = (page - 1) * PageSize
	end := start + PageSize
	if start > len(txs) {
		start = len(txs)
	}
	if end > len(txs) {
		end = len(txs)
	}
	return txs[start:end], totalPages, page, start
}

// RenderOne renders a single transaction in the detailed list view.
// n is the 1-based position within the filtered list.
func RenderOne(n int, tx valuation.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction #%d:\n", n)
	if tx.Price != 0 {
		fmt.Fprintf(&b, "• Price: %s\n", money(tx.Price))
	}
	if !tx.SaleDate.IsZero() {
		fmt.Fprintf(&b, "• Date: %s\n", tx.SaleDate.Format("2006-01-02"))
	}
	if tx.Odometer != 0 {
		fmt.Fprintf(&b, "• Mileage: %s miles\n", commas(tx.Odometer))
	}
	if tx.ConditionGrade != 0 {
		g, err := validate.NormalizeGrade(tx.ConditionGrade)
		if err != nil {
			g = tx.ConditionGrade
		}
		fmt.Fprintf(&b, "• Condition: %.1f/5.0\n", g)
	}
	if tx.Location != "" {
		fmt.Fprintf(&b, "• Location: %s\n", tx.Location)
	}
	if tx.Region != "" {
		fmt.Fprintf(&b, "• Region: %s\n", tx.Region)
	}
	if tx.Lane != "" {
		fmt.Fprintf(&b, "• Lane: %s\n", tx.Lane)
	}
	if tx.Seller != "" {
		fmt.Fprintf(&b, "• Seller: %s\n", tx.Seller)
	}
	for _, key := range sortedKeys(tx.Extra) {
		if v := tx.Extra[key]; v != "" {
			fmt.Fprintf(&b, "• %s: %s\n", spaceCamelCase(key), v)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// CountsLine is the "showing N of M" summary for a page.
func CountsLine(shown, filtered, total int, f *Filter) string {
	if f == nil || f.Kind == FilterNone {
		return fmt.Sprintf("Showing %d of %d transactions.", shown, total)
	}
	return fmt.Sprintf("Showing %d of %d transactions (%s; %d total).", shown, filtered, f.Label(), total)
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// spaceCamelCase turns "sellerType" into "Seller type" for the extra
// field labels.
func spaceCamelCase(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	return "$" + groupDigits(s[:dot]) + s[dot:]
}

func commas(n int) string {
	return groupDigits(fmt.Sprintf("%d", n))
}

func groupDigits(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
