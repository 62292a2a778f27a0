package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stupiduntilnot/auctionbot/internal/chart"
	"github.com/stupiduntilnot/auctionbot/internal/format"
	"github.com/stupiduntilnot/auctionbot/internal/refine"
	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/transactions"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
)

func (b *Bot) handleCallback(cb *transport.Callback) {
	if cb.Message == nil {
		b.log.Warn().Str("data", cb.Data).Msg("callback without originating message")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	data := cb.Data

	switch {
	case data == refine.TokenRefine:
		b.startRefinement(chatID, messageID)
	case data == "view_all_transactions" || strings.HasPrefix(data, "view_all_transactions:"):
		b.handleTransactions(chatID, messageID, data)
	case strings.HasPrefix(data, "page:"):
		b.handlePage(chatID, messageID, data)
	case strings.HasPrefix(data, "generate_chart:"):
		b.handleChart(chatID, data)
	default:
		b.handleRefineEvent(chatID, messageID, data)
	}
}

func (b *Bot) startRefinement(chatID, messageID int64) {
	entry, ok := b.sessions.Get(chatID)
	if !ok || entry.Record == nil {
		b.edit(chatID, messageID, msgSessionExpired, nil)
		return
	}
	step := refine.Start()
	entry.Stage = step.Stage
	b.sessions.Put(chatID, entry)
	b.edit(chatID, messageID, refine.Prompt(entry, step.Question), step.Menu)
}

// handleRefineEvent advances the refinement conversation by one button
// click. A token that does not match the session's stage means the menu
// belongs to a superseded conversation.
func (b *Bot) handleRefineEvent(chatID, messageID int64, token string) {
	entry, ok := b.sessions.Get(chatID)
	if !ok {
		b.edit(chatID, messageID, msgSessionExpired, nil)
		return
	}

	step, err := refine.Next(entry.Stage, token)
	if errors.Is(err, refine.ErrUnexpectedEvent) {
		b.edit(chatID, messageID, msgStaleMenu, nil)
		return
	}
	if err != nil {
		b.send(chatID, "❌ "+err.Error(), nil)
		return
	}

	if step.Merge != nil {
		step.Merge(entry)
	}

	switch step.Effect {
	case refine.EffectPrompt:
		entry.Stage = step.Stage
		b.sessions.Put(chatID, entry)
		b.edit(chatID, messageID, refine.Prompt(entry, step.Question), step.Menu)
	case refine.EffectCancel:
		b.sessions.Delete(chatID)
		b.edit(chatID, messageID, "❌ Refinement cancelled.", nil)
	case refine.EffectDispatch:
		entry.Stage = session.StageNone
		b.sessions.Put(chatID, entry)
		b.edit(chatID, messageID, "🔍 Searching with refined filters...", nil)
		b.dispatch(chatID, entry, true)
	}
}

// handleTransactions renders the detailed transaction list. Token
// grammar: view_all_transactions[:filterType:filterValue][:page:N].
func (b *Bot) handleTransactions(chatID, messageID int64, data string) {
	entry, ok := b.sessions.Get(chatID)
	if !ok || entry.Record == nil {
		b.edit(chatID, messageID, msgSessionExpired, nil)
		return
	}

	rest := strings.Split(data, ":")[1:]
	var filter *transactions.Filter
	if len(rest) >= 2 && rest[0] != "page" {
		f, err := transactions.ParseFilter(rest[0], rest[1], b.now())
		if err != nil {
			b.edit(chatID, messageID, "❌ "+err.Error(), nil)
			return
		}
		filter = f
		rest = rest[2:]
	}
	page := 1
	if len(rest) >= 2 && rest[0] == "page" {
		if n, err := strconv.Atoi(rest[1]); err == nil {
			page = n
		}
	}

	all := entry.Record.Market.Transactions
	filtered := transactions.Apply(all, filter)
	items, totalPages, current, start := transactions.Page(filtered, page)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 All Transactions for %s\n", entry.Identifier())
	if filter != nil {
		fmt.Fprintf(&sb, "Filter: %s\n", filter.Label())
	}
	if totalPages > 1 {
		fmt.Fprintf(&sb, "📄 Page %d/%d\n", current, totalPages)
	}
	sb.WriteString("\n")
	if len(items) == 0 {
		sb.WriteString("No transactions match this filter.\n\n")
	}
	for i, tx := range items {
		sb.WriteString(transactions.RenderOne(start+i+1, tx))
	}
	sb.WriteString(transactions.CountsLine(len(items), len(filtered), len(all), filter))

	var menu [][]transport.Button
	if filter == nil && current == 1 {
		menu = append(menu,
			transport.Row(
				transport.Button{Label: "⭐ Grade 4.0+", Data: "view_all_transactions:grade:4.0"},
				transport.Button{Label: "🛣 Under 50k miles", Data: "view_all_transactions:odometer:50000"},
			),
			transport.Row(transport.Button{
				Label: "🗓 Last 90 days",
				Data:  "view_all_transactions:date:" + b.now().AddDate(0, 0, -90).Format("2006-01-02"),
			}),
		)
	}
	if nav := transactionsNavRow(filter, current, totalPages); len(nav) > 0 {
		menu = append(menu, nav)
	}
	if filter != nil {
		menu = append(menu, transport.Row(transport.Button{Label: "❌ Clear Filter", Data: "view_all_transactions"}))
	}
	b.edit(chatID, messageID, sb.String(), menu)
}

func transactionsToken(f *transactions.Filter, page int) string {
	token := "view_all_transactions"
	if f != nil {
		token += ":" + string(f.Kind) + ":" + f.Value()
	}
	if page > 1 {
		token += fmt.Sprintf(":page:%d", page)
	}
	return token
}

func transactionsNavRow(f *transactions.Filter, current, totalPages int) []transport.Button {
	var row []transport.Button
	if current > 1 {
		row = append(row, transport.Button{Label: "⬅️ Prev", Data: transactionsToken(f, current-1)})
	}
	if current < totalPages {
		row = append(row, transport.Button{Label: "Next ➡️", Data: transactionsToken(f, current+1)})
	}
	return row
}

// handlePage serves page:<identifier>:<n> for a document that no longer
// fits one message, re-reading the record from history so pagination
// keeps working after the session was replaced.
func (b *Bot) handlePage(chatID, messageID int64, data string) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		b.log.Warn().Str("data", data).Msg("malformed page token")
		return
	}
	identifier := parts[1]
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		page = 1
	}

	he, err := b.history.FindByIdentifier(chatID, identifier)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to read history")
		b.send(chatID, "⚠️ Could not read your search history. Please try again later.", nil)
		return
	}
	if he == nil || he.Record == nil {
		b.edit(chatID, messageID, fmt.Sprintf("⌛ The data for %s is no longer available. Please run the search again.", identifier), nil)
		return
	}

	body, totalPages, current := format.RenderPage(he.Record, b.maxLength-pageHeaderReserve, page)
	text := fmt.Sprintf("📄 Page %d/%d\n\n%s", current, totalPages, body)
	var menu [][]transport.Button
	if nav := pageNavRow(identifier, current, totalPages); len(nav) > 0 {
		menu = append(menu, nav)
	}
	b.edit(chatID, messageID, text, menu)
}

func (b *Bot) handleChart(chatID int64, data string) {
	identifier := strings.TrimPrefix(data, "generate_chart:")

	he, err := b.history.FindByIdentifier(chatID, identifier)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to read history")
		b.send(chatID, "⚠️ Could not read your search history. Please try again later.", nil)
		return
	}
	if he == nil || he.Record == nil {
		b.send(chatID, fmt.Sprintf("⌛ The data for %s is no longer available. Please run the search again.", identifier), nil)
		return
	}

	pts := chart.Points(he.Record.Market.Transactions)
	png, err := chart.Render(he.Record.Vehicle.Description(), pts)
	if errors.Is(err, chart.ErrInsufficientData) {
		b.send(chatID, "Not enough transaction data to build a price history chart.", nil)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Str("identifier", identifier).Msg("chart rendering failed")
		b.send(chatID, "⚠️ Could not render the chart. Please try again later.", nil)
		return
	}

	caption := fmt.Sprintf("📈 Price history for %s (%s)", he.Record.Vehicle.Description(), identifier)
	if err := b.transport.SendPhoto(chatID, caption, png); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send chart")
	}
}
