// Package chart renders a vehicle's transaction price history to a PNG.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// ErrInsufficientData means fewer than MinPoints dated sales exist.
var ErrInsufficientData = errors.New("not enough transaction data to chart")

// MinPoints is the minimum number of dated transactions for a chart.
const MinPoints = 2

// Point is one dated sale.
type Point struct {
	When     time.Time
	Price    float64
	Odometer int
}

// Points extracts chartable (date, price, mileage) points from a
// transaction list, dropping undated or unpriced sales, sorted by date.
func Points(txs []valuation.Transaction) []Point {
	pts := make([]Point, 0, len(txs))
	for _, tx := range txs {
		if tx.SaleDate.IsZero() || tx.Price <= 0 {
			continue
		}
		pts = append(pts, Point{When: tx.SaleDate, Price: tx.Price, Odometer: tx.Odometer})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].When.Before(pts[j].When) })
	return pts
}

// Render draws the price series for the given vehicle title and returns
// PNG bytes.
func Render(title string, pts []Point) ([]byte, error) {
	if len(pts) < MinPoints {
		return nil, ErrInsufficientData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Sale date"
	p.Y.Label.Text = "Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = float64(pt.When.Unix())
		xys[i].Y = pt.Price
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("build price series: %w", err)
	}
	p.Add(line, points)

	wt, err := p.WriterTo(7*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return buf.Bytes(), nil
}
