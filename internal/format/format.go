// Package format turns a valuation record into display text: an ordered
// list of independent sections, rendered either as one block or sliced
// into transport-sized pages.
package format

import (
	"fmt"
	"strings"

	"github.com/stupiduntilnot/auctionbot/internal/validate"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// ExcerptTransactions is how many transactions the summary view shows.
const ExcerptTransactions = 3

// Sections renders the record into its ordered display sections. Each
// section is self-contained text; empty sections are omitted.
func Sections(rec *valuation.Record) []string {
	sections := make([]string, 0, 4)
	for _, s := range []string{
		vehicleSection(rec),
		trendSection(rec),
		statsSection(rec),
		transactionsSection(rec),
	} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

// Render returns the whole document as one block.
func Render(rec *valuation.Record) string {
	return strings.Join(Sections(rec), "")
}

// RenderPage slices the document to fit maxLength characters per page
// and returns the requested page's text with the page count. Page 1
// packs whole sections greedily (an overflowing section is deferred, not
// split); later pages walk the concatenated section stream by character
// offset and may split a section at the window boundary.
func RenderPage(rec *valuation.Record, maxLength, page int) (string, int, int) {
	return Paginate(Sections(rec), maxLength, page)
}

// Paginate implements the page-slicing algorithm over pre-rendered
// sections.
func Paginate(sections []string, maxLength, page int) (string, int, int) {
	if maxLength <= 0 {
		return strings.Join(sections, ""), 1, 1
	}

	total := 0
	for _, s := range sections {
		total += len([]rune(s))
	}
	totalPages := (total + maxLength - 1) / maxLength
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	var b strings.Builder
	if page == 1 {
		used := 0
		for _, s := range sections {
			n := len([]rune(s))
			if used+n > maxLength {
				break
			}
			b.WriteString(s)
			used += n
		}
		return b.String(), totalPages, page
	}

	windowStart := (page - 1) * maxLength
	windowEnd := page * maxLength
	offset := 0
	for _, s := range sections {
		runes := []rune(s)
		secStart := offset
		secEnd := offset + len(runes)
		offset = secEnd
		if secEnd <= windowStart || secStart >= windowEnd {
			continue
		}
		from := 0
		if windowStart > secStart {
			from = windowStart - secStart
		}
		to := len(runes)
		if windowEnd < secEnd {
			to = windowEnd - secStart
		}
		b.WriteString(string(runes[from:to]))
	}
	return b.String(), totalPages, page
}

func vehicleSection(rec *valuation.Record) string {
	var b strings.Builder
	b.WriteString("🚗 Vehicle Auction Data:\n\n")

	v := rec.Vehicle
	if v != (valuation.Vehicle{}) {
		b.WriteString("📋 Vehicle Info:\n")
		if v.Year != 0 || v.Make != "" || v.Model != "" {
			b.WriteString("- " + v.Description() + "\n")
		}
		if v.VIN != "" {
			b.WriteString("- VIN: " + v.VIN + "\n")
		}
		if v.Style != "" {
			b.WriteString("- Style: " + v.Style + "\n")
		}
		if v.EngineSize != "" {
			b.WriteString("- Engine: " + v.EngineSize + "\n")
		}
		if v.Transmission != "" {
			b.WriteString("- Transmission: " + v.Transmission + "\n")
		}
		if v.Drivetrain != "" {
			b.WriteString("- Drivetrain: " + v.Drivetrain + "\n")
		}
		b.WriteString("\n")
	}

	if w := rec.Wholesale; w != nil {
		b.WriteString("💰 Wholesale Values:\n")
		writeBand(&b, "Aggregate Average", w.AggregateAverage)
		writeBand(&b, "Adjusted MMR", w.AdjustedMMR)
		if w.BaseMMR != nil && w.BaseMMR.Average != 0 {
			fmt.Fprintf(&b, "- Base MMR: %s\n", money(w.BaseMMR.Average))
		}
		b.WriteString("\n")
	}

	if len(rec.Adjustments) > 0 {
		b.WriteString("⚙️ Applied Adjustments:\n")
		for _, a := range rec.Adjustments {
			label := a.Factor
			if a.Value != "" {
				label += " (" + a.Value + ")"
			}
			fmt.Fprintf(&b, "- %s: %s\n", label, signedMoney(a.Amount))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func trendSection(rec *valuation.Record) string {
	if rec.Historical == nil && rec.Forecast == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("📈 Price History & Forecast:\n")
	if h := rec.Historical; h != nil {
		writePoint(&b, "Last 30 Days", h.Last30Days)
		writePoint(&b, "Last Month", h.LastMonth)
		writePoint(&b, "Last 6 Months", h.Last6)
		writePoint(&b, "Last Year", h.LastYear)
	}
	if f := rec.Forecast; f != nil {
		if f.NextMonth != 0 {
			fmt.Fprintf(&b, "- Forecast Next Month: %s\n", money(f.NextMonth))
		}
		if f.NextYear != 0 {
			fmt.Fprintf(&b, "- Forecast Next Year: %s\n", money(f.NextYear))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func statsSection(rec *valuation.Record) string {
	stats := Stats(rec)
	if stats == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("📊 Market Summary:\n")
	if stats.AveragePrice != 0 {
		fmt.Fprintf(&b, "- Average Price: %s\n", money(stats.AveragePrice))
	}
	if stats.AverageOdometer != 0 {
		fmt.Fprintf(&b, "- Average Mileage: %s miles\n", commas(stats.AverageOdometer))
	}
	if stats.AverageGrade != 0 {
		fmt.Fprintf(&b, "- Average Condition: %.1f/5.0\n", displayGrade(stats.AverageGrade))
	}
	if stats.TransactionCount != 0 {
		fmt.Fprintf(&b, "- Total Transactions: %d\n", stats.TransactionCount)
	}
	b.WriteString("\n")
	return b.String()
}

func transactionsSection(rec *valuation.Record) string {
	txs := rec.Market.Transactions
	if len(txs) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 Recent Transactions (%d total):\n", len(txs))
	shown := txs
	if len(shown) > ExcerptTransactions {
		shown = shown[:ExcerptTransactions]
	}
	for i, tx := range shown {
		fmt.Fprintf(&b, "%d. ", i+1)
		if tx.Price != 0 {
			b.WriteString(money(tx.Price))
		}
		if !tx.SaleDate.IsZero() {
			b.WriteString(" on " + tx.SaleDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
		if tx.Odometer != 0 {
			fmt.Fprintf(&b, "   Mileage: %s miles\n", commas(tx.Odometer))
		}
		if tx.ConditionGrade != 0 {
			fmt.Fprintf(&b, "   Condition: %.1f/5.0\n", displayGrade(tx.ConditionGrade))
		}
		if tx.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", tx.Location)
		}
		b.WriteString("\n")
	}
	if len(txs) > ExcerptTransactions {
		fmt.Fprintf(&b, "... and %d more transactions. Use the button below to view all.\n\n", len(txs)-ExcerptTransactions)
	}
	return b.String()
}

func writeBand(b *strings.Builder, label string, band *valuation.PriceBand) {
	if band == nil {
		return
	}
	if band.Average != 0 {
		fmt.Fprintf(b, "- %s: %s\n", label, money(band.Average))
	}
	if band.Rough != 0 && band.Clean != 0 {
		fmt.Fprintf(b, "  Range: %s - %s\n", money(band.Rough), money(band.Clean))
	}
}

func writePoint(b *strings.Builder, label string, p *valuation.PricePoint) {
	if p == nil || p.Price == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s", label, money(p.Price))
	if p.Odometer != 0 {
		fmt.Fprintf(b, " (%s miles)", commas(p.Odometer))
	}
	b.WriteString("\n")
}

// displayGrade maps a possibly wire-scale grade onto 0-5 for display;
// a value outside both scales is shown as received.
func displayGrade(raw float64) float64 {
	g, err := validate.NormalizeGrade(raw)
	if err != nil {
		return raw
	}
	return g
}

func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	return "$" + groupDigits(s[:dot]) + s[dot:]
}

func signedMoney(v float64) string {
	if v < 0 {
		return "-" + money(-v)
	}
	return money(v)
}

func commas(n int) string {
	return groupDigits(fmt.Sprintf("%d", n))
}

func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
