// Package refine drives the button-driven valuation refinement
// conversation: color → grade → odometer → region → dispatch. The
// transition table is a plain function over (stage, token) so it is
// testable without a live transport; all chat I/O stays in the engine.
package refine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
	"github.com/stupiduntilnot/auctionbot/internal/validate"
)

// Callback tokens owned by the refinement conversation.
const (
	TokenRefine = "refine_valuation"
	TokenCancel = "cancel"

	prefixColor    = "color_"
	prefixGrade    = "grade_"
	prefixOdometer = "odometer_"
	prefixRegion   = "region_"
	regionSkip     = "skip"
)

// Colors is the fixed color menu.
var Colors = []string{"BLACK", "WHITE", "SILVER", "GRAY", "RED", "BLUE", "BROWN", "GREEN", "GOLD", "OTHER"}

// Grades is the fixed half-step grade menu.
var Grades = []string{"1.0", "1.5", "2.0", "2.5", "3.0", "3.5", "4.0", "4.5", "5.0"}

type odometerBucket struct {
	Label string
	Miles string
}

// OdometerBuckets are the mileage choices; the value is the bucket
// midpoint sent to the provider.
var OdometerBuckets = []odometerBucket{
	{"< 10,000", "5000"},
	{"10-30k", "20000"},
	{"30-60k", "45000"},
	{"60-100k", "80000"},
	{"100-150k", "125000"},
	{"> 150k", "175000"},
}

var regionLabels = map[string]string{
	"NE": "Northeast (NE)",
	"SE": "Southeast (SE)",
	"MW": "Midwest (MW)",
	"SW": "Southwest (SW)",
	"W":  "West (W)",
}

// ErrUnexpectedEvent means the token does not belong to the current
// stage, typically a stale button from a superseded conversation.
var ErrUnexpectedEvent = errors.New("refinement event does not match conversation state")

// Effect says what the engine should do after a transition.
type Effect int

const (
	// EffectPrompt: present the next question's menu.
	EffectPrompt Effect = iota
	// EffectDispatch: all filters collected; run the refined lookup,
	// record history, delete the session.
	EffectDispatch
	// EffectCancel: delete the session, no dispatch.
	EffectCancel
)

// Step is the outcome of one transition: the next stage, the effect,
// the next question (when prompting), and the filter merge to apply to
// the session entry. Merge is nil when nothing was chosen (start,
// cancel, region skip).
type Step struct {
	Stage    session.Stage
	Effect   Effect
	Question string
	Menu     [][]transport.Button
	Merge    func(*session.Entry)
}

// Start begins the conversation at the color question.
func Start() Step {
	return Step{
		Stage:    session.StageColor,
		Effect:   EffectPrompt,
		Question: "Please select the vehicle color:",
		Menu:     colorMenu(),
	}
}

// Next maps (stage, token) to the following step. Cancel is accepted
// from every stage. No stage can be revisited and there is no back
// transition.
func Next(stage session.Stage, token string) (Step, error) {
	if token == TokenCancel {
		return Step{Stage: session.StageNone, Effect: EffectCancel}, nil
	}

	switch stage {
	case session.StageColor:
		raw, ok := strings.CutPrefix(token, prefixColor)
		if !ok {
			return Step{}, ErrUnexpectedEvent
		}
		color, err := Color(raw)
		if err != nil {
			return Step{}, err
		}
		return Step{
			Stage:    session.StageGrade,
			Effect:   EffectPrompt,
			Question: "Please select the vehicle condition grade:",
			Menu:     gradeMenu(),
			Merge:    func(e *session.Entry) { e.Filters.Color = color },
		}, nil

	case session.StageGrade:
		raw, ok := strings.CutPrefix(token, prefixGrade)
		if !ok {
			return Step{}, ErrUnexpectedEvent
		}
		grade, err := validate.Grade(raw)
		if err != nil {
			return Step{}, err
		}
		return Step{
			Stage:    session.StageOdometer,
			Effect:   EffectPrompt,
			Question: "Please select approximate mileage:",
			Menu:     odometerMenu(),
			Merge:    func(e *session.Entry) { e.Filters.Grade = &grade },
		}, nil

	case session.StageOdometer:
		raw, ok := strings.CutPrefix(token, prefixOdometer)
		if !ok {
			return Step{}, ErrUnexpectedEvent
		}
		miles, err := validate.Odometer(raw)
		if err != nil {
			return Step{}, err
		}
		return Step{
			Stage:    session.StageRegion,
			Effect:   EffectPrompt,
			Question: "Please select region:",
			Menu:     regionMenu(),
			Merge:    func(e *session.Entry) { e.Filters.Odometer = &miles },
		}, nil

	case session.StageRegion:
		raw, ok := strings.CutPrefix(token, prefixRegion)
		if !ok {
			return Step{}, ErrUnexpectedEvent
		}
		if raw == regionSkip {
			return Step{Stage: session.StageNone, Effect: EffectDispatch}, nil
		}
		region, err := validate.Region(raw)
		if err != nil {
			return Step{}, err
		}
		return Step{
			Stage:  session.StageNone,
			Effect: EffectDispatch,
			Merge:  func(e *session.Entry) { e.Filters.Region = region },
		}, nil

	default:
		return Step{}, ErrUnexpectedEvent
	}
}

// Color validates a color choice against the fixed menu.
func Color(raw string) (string, error) {
	for _, c := range Colors {
		if strings.EqualFold(raw, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("color %q is not one of %s", raw, strings.Join(Colors, "/"))
}

// Prompt builds the running-summary text shown above the next question.
func Prompt(e *session.Entry, question string) string {
	var b strings.Builder
	if e.Filters.Color != "" {
		fmt.Fprintf(&b, "Selected color: %s\n", e.Filters.Color)
	}
	if e.Filters.Grade != nil {
		fmt.Fprintf(&b, "Selected grade: %.1f\n", *e.Filters.Grade)
	}
	if e.Filters.Odometer != nil {
		fmt.Fprintf(&b, "Selected mileage: %d\n", *e.Filters.Odometer)
	}
	b.WriteString(question)
	return b.String()
}

func colorMenu() [][]transport.Button {
	menu := make([][]transport.Button, 0, len(Colors)+1)
	for _, c := range Colors {
		menu = append(menu, transport.Row(transport.Button{Label: c, Data: prefixColor + c}))
	}
	return append(menu, cancelRow())
}

func gradeMenu() [][]transport.Button {
	menu := make([][]transport.Button, 0, len(Grades)+1)
	for _, g := range Grades {
		menu = append(menu, transport.Row(transport.Button{Label: "Grade " + g, Data: prefixGrade + g}))
	}
	return append(menu, cancelRow())
}

func odometerMenu() [][]transport.Button {
	menu := make([][]transport.Button, 0, len(OdometerBuckets)/2+1)
	for i := 0; i < len(OdometerBuckets); i += 2 {
		row := []transport.Button{{
			Label: OdometerBuckets[i].Label,
			Data:  prefixOdometer + OdometerBuckets[i].Miles,
		}}
		if i+1 < len(OdometerBuckets) {
			row = append(row, transport.Button{
				Label: OdometerBuckets[i+1].Label,
				Data:  prefixOdometer + OdometerBuckets[i+1].Miles,
			})
		}
		menu = append(menu, row)
	}
	return append(menu, cancelRow())
}

func regionMenu() [][]transport.Button {
	menu := make([][]transport.Button, 0, 4)
	var row []transport.Button
	for _, code := range validate.Regions {
		row = append(row, transport.Button{Label: regionLabels[code], Data: prefixRegion + code})
		if len(row) == 2 {
			menu = append(menu, row)
			row = nil
		}
	}
	row = append(row, transport.Button{Label: "Skip", Data: prefixRegion + regionSkip})
	menu = append(menu, row)
	return append(menu, cancelRow())
}

func cancelRow() []transport.Button {
	return transport.Row(transport.Button{Label: "❌ Cancel", Data: TokenCancel})
}
