// Package dummy provides scripted stand-ins for the chat transport and
// the valuation provider, selected via config for offline runs and
// end-to-end tests. Scripts are comma-separated actions: "ok",
// "err:<class>", "sleep:<ms>", "msg:<text>" (transport poll),
// "notfound" (provider).
package dummy

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/transport"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

type action struct {
	kind string
	arg  string
}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		switch {
		case token == "ok" || token == "notfound":
			actions = append(actions, action{kind: token})
		case strings.HasPrefix(token, "err:"):
			actions = append(actions, action{kind: "err", arg: strings.TrimPrefix(token, "err:")})
		case strings.HasPrefix(token, "sleep:"):
			actions = append(actions, action{kind: "sleep", arg: strings.TrimPrefix(token, "sleep:")})
		case strings.HasPrefix(token, "msg:"):
			actions = append(actions, action{kind: "msg", arg: strings.TrimPrefix(token, "msg:")})
		default:
			return nil, fmt.Errorf("invalid dummy action: %s", token)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Transport is a scripted transport.Transport. Outbound messages are
// retained for inspection.
type Transport struct {
	mu       sync.Mutex
	poll     *scriptRunner
	updateID int64
	Sent     []string
}

// NewTransport creates a transport whose polls follow pollScript.
func NewTransport(pollScript string) (*Transport, error) {
	poll, err := newRunner(pollScript)
	if err != nil {
		return nil, err
	}
	return &Transport{poll: poll, updateID: 1}, nil
}

func (t *Transport) GetUpdates(offset int64, timeout int) ([]transport.Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.poll.next()
	switch a.kind {
	case "err":
		return nil, fmt.Errorf("dummy transport error class=%s", emptyAs(a.arg, "chat_transport"))
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		return nil, nil
	case "msg":
		text := a.arg
		t.updateID++
		return []transport.Update{{
			UpdateID: t.updateID,
			Message: &transport.Message{
				Chat: transport.Chat{ID: 1},
				Text: &text,
				Date: time.Now().Unix(),
			},
		}}, nil
	default:
		return nil, nil
	}
}

func (t *Transport) SendMessage(chatID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Sent = append(t.Sent, text)
	return nil
}

func (t *Transport) SendMenu(chatID int64, text string, menu [][]transport.Button) error {
	return t.SendMessage(chatID, text)
}

func (t *Transport) EditMessage(chatID, messageID int64, text string, menu [][]transport.Button) error {
	return t.SendMessage(chatID, text)
}

func (t *Transport) SendPhoto(chatID int64, caption string, png []byte) error {
	return t.SendMessage(chatID, "[photo] "+caption)
}

// Provider is a scripted valuation.Provider returning a canned record
// on "ok".
type Provider struct {
	mu     sync.Mutex
	script *scriptRunner
}

// NewProvider creates a provider following the given script.
func NewProvider(script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{script: runner}, nil
}

func (p *Provider) ByVIN(req valuation.VINRequest) (*valuation.Record, error) {
	rec := SampleRecord()
	rec.Vehicle.VIN = req.VIN
	return p.result(rec)
}

func (p *Provider) ByYMM(req valuation.YMMRequest) (*valuation.Record, error) {
	rec := SampleRecord()
	rec.Vehicle.Year = req.Year
	rec.Vehicle.Make = req.Make
	rec.Vehicle.Model = req.Model
	rec.Vehicle.VIN = ""
	return p.result(rec)
}

func (p *Provider) result(rec *valuation.Record) (*valuation.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.script.next()
	switch a.kind {
	case "notfound":
		return nil, valuation.ErrNotFound
	case "err":
		return nil, &valuation.ProviderError{
			Op:  "dummy",
			Err: fmt.Errorf("scripted error class=%s", emptyAs(a.arg, "provider_api")),
		}
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		return rec, nil
	default:
		return rec, nil
	}
}

// SampleRecord is the canned valuation used by the dummy provider.
func SampleRecord() *valuation.Record {
	return &valuation.Record{
		Vehicle: valuation.Vehicle{
			Year:         2015,
			Make:         "BMW",
			Model:        "328i",
			Trim:         "xDrive",
			VIN:          "WBA3C1C5XFP853102",
			Style:        "4D Sedan",
			EngineSize:   "2.0L I4",
			Transmission: "AUTO",
			Drivetrain:   "AWD",
		},
		Wholesale: &valuation.Wholesale{
			AggregateAverage: &valuation.PriceBand{Average: 18500, Rough: 16200, Clean: 20100},
			AdjustedMMR:      &valuation.PriceBand{Average: 18200, Rough: 15900, Clean: 19800},
			BaseMMR:          &valuation.PriceBand{Average: 18000},
		},
		Market: valuation.MarketSummary{
			Transactions: []valuation.Transaction{
				{Price: 18750, SaleDate: mustDate("2024-11-02"), Odometer: 38112, ConditionGrade: 37, Location: "Manheim Pennsylvania", Region: "NE"},
				{Price: 17200, SaleDate: mustDate("2024-10-18"), Odometer: 52990, ConditionGrade: 3.1, Location: "Manheim Orlando", Region: "SE"},
				{Price: 18100, SaleDate: mustDate("2024-09-30"), Odometer: 44215, ConditionGrade: 35, Location: "Manheim Dallas", Region: "SW"},
				{Price: 16450, SaleDate: mustDate("2024-09-12"), Odometer: 61020, ConditionGrade: 2.8, Location: "Manheim Chicago", Region: "MW"},
			},
		},
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
