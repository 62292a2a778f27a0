package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
	"github.com/stupiduntilnot/auctionbot/internal/validate"
	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

const welcomeText = `👋 Welcome to the Auction Valuation Bot!

Commands:
/vin <VIN> - look up auction values by VIN
/ymm <year> <make> <model> - look up by Year/Make/Model
/history - your recent searches
/help - detailed usage and examples`

const helpText = `🚗 Auction Valuation Bot - usage

/vin <VIN> [subseries] [transmission]
/vin <VIN> key=value ...
/ymm <year> <make> <model> [key=value ...]
/history [VIN | year make model]

Filters (key=value):
  color=BLACK      vehicle color
  grade=4.0        condition grade, 0-5 scale
  odometer=45000   mileage in miles
  region=NE        one of NE/SE/MW/SW/W
  date=2021-06-01  sale date floor, not before 2018-10-08

Positional subseries/transmission and key=value filters cannot be mixed
in one command.

Examples:
  /vin WBA3C1C5XFP853102
  /vin WBA3C1C5XFP853102 SE AUTO
  /vin WBA3C1C5XFP853102 color=BLACK grade=4.0
  /ymm 2015 BMW 328i region=NE

Test VIN (UAT environment): WBA3C1C5XFP853102`

const vinUsageText = `Usage: /vin <VIN> [subseries] [transmission] or /vin <VIN> key=value ...
Example: /vin WBA3C1C5XFP853102`

const ymmUsageText = `Usage: /ymm <year> <make> <model> [key=value ...]
Example: /ymm 2015 BMW 328i`

func (b *Bot) handleMessage(m *transport.Message) {
	chatID := m.Chat.ID
	text := strings.TrimSpace(*m.Text)
	if !strings.HasPrefix(text, "/") {
		b.send(chatID, "I only understand commands. Try /help.", nil)
		return
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// Group chats address commands as /vin@BotName.
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "start":
		b.send(chatID, welcomeText, nil)
	case "help":
		b.send(chatID, helpText, nil)
	case "vin":
		b.handleVIN(chatID, args)
	case "ymm":
		b.handleYMM(chatID, args)
	case "history":
		b.handleHistory(chatID, args)
	default:
		b.send(chatID, fmt.Sprintf("Unknown command /%s. Try /help.", cmd), nil)
	}
}

func (b *Bot) handleVIN(chatID int64, args []string) {
	if len(args) == 0 {
		b.send(chatID, vinUsageText, nil)
		return
	}

	vin := strings.ToUpper(args[0])
	if err := validate.VIN(vin); err != nil {
		b.send(chatID, "❌ "+err.Error(), nil)
		return
	}

	rest := args[1:]
	entry := &session.Entry{Kind: session.KindVIN, VIN: vin, CreatedAt: b.now()}

	if hasKeyValue(rest) {
		filters, err := parseFilters(rest, b.now())
		if err != nil {
			b.send(chatID, "❌ "+err.Error(), nil)
			return
		}
		entry.Filters = filters
	} else {
		if len(rest) > 2 {
			b.send(chatID, "❌ too many arguments: expected at most subseries and transmission after the VIN", nil)
			return
		}
		if len(rest) > 0 {
			entry.Subseries = strings.ToUpper(rest[0])
		}
		if len(rest) > 1 {
			entry.Transmission = strings.ToUpper(rest[1])
		}
	}

	b.send(chatID, fmt.Sprintf("🔍 Searching auction data for VIN %s...", vin), nil)
	b.dispatch(chatID, entry, false)
}

func (b *Bot) handleYMM(chatID int64, args []string) {
	// Model may span several words; it ends at the first key=value
	// argument.
	kwStart := len(args)
	for i, a := range args {
		if strings.ContainsRune(a, '=') {
			kwStart = i
			break
		}
	}
	positional := args[:kwStart]
	if len(positional) < 3 {
		b.send(chatID, ymmUsageText, nil)
		return
	}

	year, err := validate.YearMakeModel(positional[0], positional[1], strings.Join(positional[2:], " "), b.now())
	if err != nil {
		b.send(chatID, "❌ "+err.Error(), nil)
		return
	}

	entry := &session.Entry{
		Kind:      session.KindYMM,
		Year:      year,
		Make:      positional[1],
		Model:     strings.Join(positional[2:], " "),
		CreatedAt: b.now(),
	}
	if kwStart < len(args) {
		filters, err := parseFilters(args[kwStart:], b.now())
		if err != nil {
			b.send(chatID, "❌ "+err.Error(), nil)
			return
		}
		entry.Filters = filters
	}

	b.send(chatID, fmt.Sprintf("🔍 Searching auction data for %s...", entry.Identifier()), nil)
	b.dispatch(chatID, entry, false)
}

func (b *Bot) handleHistory(chatID int64, args []string) {
	entries, err := b.history.Recent(chatID, 0)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to read history")
		b.send(chatID, "⚠️ Could not read your search history. Please try again later.", nil)
		return
	}

	wanted := strings.Join(args, " ")
	if wanted != "" {
		kept := entries[:0]
		for _, e := range entries {
			if strings.EqualFold(e.Identifier, wanted) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if len(entries) == 0 {
		if wanted != "" {
			b.send(chatID, fmt.Sprintf("No history entries match %s.", wanted), nil)
		} else {
			b.send(chatID, "You have no search history yet. Try /vin or /ymm.", nil)
		}
		return
	}

	var sb strings.Builder
	sb.WriteString("🕘 Your recent searches:\n\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s %s - %s", i+1, kindEmoji(e.Kind), e.Identifier, e.At.Format("2006-01-02 15:04"))
		if e.Refined {
			sb.WriteString(" (refined)")
		}
		if e.Historical {
			sb.WriteString(" (historical)")
		}
		sb.WriteString("\n")
	}
	b.send(chatID, sb.String(), nil)
}

func kindEmoji(k session.Kind) string {
	if k == session.KindVIN {
		return "🔑"
	}
	return "🚘"
}

func hasKeyValue(args []string) bool {
	for _, a := range args {
		if strings.ContainsRune(a, '=') {
			return true
		}
	}
	return false
}

// parseFilters parses key=value arguments. Any '=' switches the whole
// remainder to keyword mode, so a bare token here is an error rather
// than a positional argument.
func parseFilters(args []string, now time.Time) (valuation.Filters, error) {
	var f valuation.Filters
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return valuation.Filters{}, fmt.Errorf("expected key=value, got %q (positional and key=value arguments cannot be mixed)", a)
		}
		if value == "" {
			return valuation.Filters{}, fmt.Errorf("filter %q has no value", key)
		}
		switch strings.ToLower(key) {
		case "color":
			f.Color = strings.ToUpper(value)
		case "grade":
			g, err := validate.Grade(value)
			if err != nil {
				return valuation.Filters{}, err
			}
			f.Grade = &g
		case "odometer":
			o, err := validate.Odometer(value)
			if err != nil {
				return valuation.Filters{}, err
			}
			f.Odometer = &o
		case "region":
			r, err := validate.Region(value)
			if err != nil {
				return valuation.Filters{}, err
			}
			f.Region = r
		case "date":
			d, err := validate.Date(value, now)
			if err != nil {
				return valuation.Filters{}, err
			}
			f.Date = d.Format("2006-01-02")
		default:
			return valuation.Filters{}, fmt.Errorf("unknown filter %q: use color, grade, odometer, region or date", key)
		}
	}
	return f, nil
}
