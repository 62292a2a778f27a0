// Package bot is the engine: it polls the transport for updates, parses
// commands, routes button callbacks, and wires the validator, session
// store, history recorder and valuation provider together.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/auctionbot/internal/chart"
	"github.com/stupiduntilnot/auctionbot/internal/control"
	"github.com/stupiduntilnot/auctionbot/internal/format"
	"github.com/stupiduntilnot/auctionbot/internal/history"
	"github.com/stupiduntilnot/auctionbot/internal/refine"
	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

// DefaultMaxMessageLength matches the Telegram message size cap.
const DefaultMaxMessageLength = 4096

const (
	msgSessionExpired  = "⌛ Session expired. Please run /vin or /ymm again."
	msgStaleMenu       = "⌛ This menu belongs to an earlier search. Please run /vin or /ymm again."
	msgProviderFailure = "⚠️ The valuation service is unavailable right now. Please try again later."
)

const refinedResultsPrefix = "✨ Refined Valuation Results:\n\n"

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	PollTimeout      int           // long-poll timeout in seconds
	Sleep            time.Duration // pause between empty/failed polls
	MaxMessageLength int
	CircuitThreshold int
	CircuitCooldown  time.Duration
}

// Bot serves one chat transport against one valuation provider.
type Bot struct {
	transport transport.Transport
	provider  valuation.Provider
	sessions  session.Store
	history   *history.Recorder
	breaker   *control.CircuitBreaker
	log       zerolog.Logger

	pollTimeout int
	sleep       time.Duration
	maxLength   int
	now         func() time.Time
}

// New wires an engine. history may be backed by an in-memory database;
// the engine never distinguishes.
func New(t transport.Transport, p valuation.Provider, sessions session.Store, rec *history.Recorder, log zerolog.Logger, opts Options) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	if opts.Sleep <= 0 {
		opts.Sleep = time.Second
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	return &Bot{
		transport:   t,
		provider:    p,
		sessions:    sessions,
		history:     rec,
		breaker:     control.NewCircuitBreaker(opts.CircuitThreshold, opts.CircuitCooldown),
		log:         log,
		pollTimeout: opts.PollTimeout,
		sleep:       opts.Sleep,
		maxLength:   opts.MaxMessageLength,
		now:         time.Now,
	}
}

// Run polls for updates until the context is cancelled. Each update is
// handled on its own goroutine so a slow provider call never blocks
// other users.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !b.breaker.Allow(b.now()) {
			time.Sleep(b.sleep)
			continue
		}

		updates, err := b.transport.GetUpdates(offset, b.pollTimeout)
		if err != nil {
			b.breaker.RecordFailure(b.now())
			b.log.Error().Err(err).Str("state", string(b.breaker.State())).Msg("poll failed")
			time.Sleep(b.sleep)
			continue
		}
		b.breaker.RecordSuccess()

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			go b.HandleUpdate(u)
		}
		if len(updates) == 0 {
			time.Sleep(b.sleep)
		}
	}
}

// HandleUpdate processes a single inbound update. A panic in a handler
// is contained to that update.
func (b *Bot) HandleUpdate(u transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Int64("update_id", u.UpdateID).Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case u.Callback != nil:
		b.handleCallback(u.Callback)
	case u.Message != nil && u.Message.Text != nil:
		b.handleMessage(u.Message)
	}
}

// dispatch runs a lookup for the entry's identifier and current filters,
// records history, and sends the formatted document. A top-level lookup
// stores the result on the session; a refined dispatch is the terminal
// state of its conversation and consumes the session whatever the
// outcome.
func (b *Bot) dispatch(chatID int64, e *session.Entry, refined bool) {
	if refined {
		defer b.sessions.Delete(chatID)
	}

	rec, err := b.lookup(e)
	if err != nil {
		b.reportLookupError(chatID, e.Identifier(), err)
		return
	}

	e.Record = rec
	e.Stage = session.StageNone
	if !refined {
		b.sessions.Put(chatID, e)
	}
	b.recordHistory(chatID, e, refined)

	text := format.Render(rec)
	if refined {
		text = refinedResultsPrefix + text
	}
	b.sendDocument(chatID, e, text, refined)
}

func (b *Bot) lookup(e *session.Entry) (*valuation.Record, error) {
	vinReq, ymmReq := e.Request()
	if e.Kind == session.KindVIN {
		return b.provider.ByVIN(vinReq)
	}
	return b.provider.ByYMM(ymmReq)
}

// sendDocument delivers the formatted record. A document over the size
// cap goes out as page 1 with navigation buttons; later pages are served
// by the page:<identifier>:<n> callback from history.
func (b *Bot) sendDocument(chatID int64, e *session.Entry, text string, refined bool) {
	var menu [][]transport.Button
	if !refined {
		menu = b.optionsMenu(e)
	}

	if len([]rune(text)) <= b.maxLength {
		b.send(chatID, text, menu)
		return
	}

	budget := b.maxLength - pageHeaderReserve
	if refined {
		budget -= len([]rune(refinedResultsPrefix))
	}
	body, totalPages, current := format.RenderPage(e.Record, budget, 1)
	if refined {
		body = refinedResultsPrefix + body
	}
	page := fmt.Sprintf("📄 Page %d/%d\n\n%s", current, totalPages, body)
	menu = append([][]transport.Button{pageNavRow(e.Identifier(), current, totalPages)}, menu...)
	b.send(chatID, page, menu)
}

// pageHeaderReserve keeps the "Page i/N" header line within the cap.
const pageHeaderReserve = 32

func pageNavRow(identifier string, current, totalPages int) []transport.Button {
	var row []transport.Button
	if current > 1 {
		row = append(row, transport.Button{
			Label: "⬅️ Prev",
			Data:  fmt.Sprintf("page:%s:%d", identifier, current-1),
		})
	}
	if current < totalPages {
		row = append(row, transport.Button{
			Label: "Next ➡️",
			Data:  fmt.Sprintf("page:%s:%d", identifier, current+1),
		})
	}
	return row
}

// optionsMenu builds the follow-up menu shown after a top-level lookup.
func (b *Bot) optionsMenu(e *session.Entry) [][]transport.Button {
	if e.Record == nil {
		return nil
	}
	var menu [][]transport.Button
	txs := e.Record.Market.Transactions
	if len(txs) > format.ExcerptTransactions {
		menu = append(menu, transport.Row(transport.Button{
			Label: fmt.Sprintf("📋 View All %d Transactions", len(txs)),
			Data:  "view_all_transactions",
		}))
	}
	if e.Filters.Color == "" || e.Filters.Grade == nil {
		menu = append(menu, transport.Row(transport.Button{
			Label: "🔧 Refine Valuation",
			Data:  refine.TokenRefine,
		}))
	}
	if len(chart.Points(txs)) >= chart.MinPoints {
		menu = append(menu, transport.Row(transport.Button{
			Label: "📈 Price History Chart",
			Data:  "generate_chart:" + e.Identifier(),
		}))
	}
	return menu
}

func (b *Bot) recordHistory(chatID int64, e *session.Entry, refined bool) {
	entry := history.Entry{
		Kind:         e.Kind,
		Identifier:   e.Identifier(),
		Subseries:    e.Subseries,
		Transmission: e.Transmission,
		Filters:      e.Filters,
		Record:       e.Record,
		At:           b.now(),
		Refined:      refined,
		Historical:   e.Filters.Date != "",
	}
	if err := b.history.Record(chatID, entry); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Str("identifier", entry.Identifier).Msg("failed to record history")
	}
}

// reportLookupError maps the dispatch error taxonomy to user messages:
// not-found plainly, provider failures generically with the detail kept
// in the log.
func (b *Bot) reportLookupError(chatID int64, identifier string, err error) {
	if errors.Is(err, valuation.ErrNotFound) {
		b.send(chatID, fmt.Sprintf("No valuation data found for %s.", identifier), nil)
		return
	}
	var pe *valuation.ProviderError
	if errors.As(err, &pe) {
		b.log.Error().Err(pe.Err).Str("op", pe.Op).Str("identifier", identifier).Msg("provider call failed")
	} else {
		b.log.Error().Err(err).Str("identifier", identifier).Msg("provider call failed")
	}
	b.send(chatID, msgProviderFailure, nil)
}

func (b *Bot) send(chatID int64, text string, menu [][]transport.Button) {
	var err error
	if len(menu) > 0 {
		err = b.transport.SendMenu(chatID, text, menu)
	} else {
		err = b.transport.SendMessage(chatID, text)
	}
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (b *Bot) edit(chatID, messageID int64, text string, menu [][]transport.Button) {
	if err := b.transport.EditMessage(chatID, messageID, text, menu); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to edit message")
	}
}
