package refine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stupiduntilnot/auctionbot/internal/session"
	"github.com/stupiduntilnot/auctionbot/internal/transport"
)

func TestTerminalScenario(t *testing.T) {
	entry := &session.Entry{Kind: session.KindVIN, VIN: "WBA3C1C5XFP853102"}

	step := Start()
	if step.Effect != EffectPrompt || step.Stage != session.StageColor {
		t.Fatalf("Start() = effect %d stage %d", step.Effect, step.Stage)
	}
	entry.Stage = step.Stage

	dispatched := 0
	for _, token := range []string{"color_BLACK", "grade_4.0", "odometer_45000", "region_skip"} {
		var err error
		step, err = Next(entry.Stage, token)
		if err != nil {
			t.Fatalf("Next(%d, %q): %v", entry.Stage, token, err)
		}
		if step.Merge != nil {
			step.Merge(entry)
		}
		switch step.Effect {
		case EffectPrompt:
			entry.Stage = step.Stage
		case EffectDispatch:
			dispatched++
		case EffectCancel:
			t.Fatalf("unexpected cancel at token %q", token)
		}
	}

	if dispatched != 1 {
		t.Fatalf("dispatched %d times, want exactly 1", dispatched)
	}
	f := entry.Filters
	if f.Color != "BLACK" {
		t.Errorf("Color = %q, want BLACK", f.Color)
	}
	if f.Grade == nil || *f.Grade != 4.0 {
		t.Errorf("Grade = %v, want 4.0", f.Grade)
	}
	if f.Odometer == nil || *f.Odometer != 45000 {
		t.Errorf("Odometer = %v, want 45000", f.Odometer)
	}
	if f.Region != "" {
		t.Errorf("Region = %q, want unset after skip", f.Region)
	}
}

func TestRegionChoiceMergesBeforeDispatch(t *testing.T) {
	entry := &session.Entry{Stage: session.StageRegion}
	step, err := Next(entry.Stage, "region_NE")
	if err != nil {
		t.Fatal(err)
	}
	if step.Effect != EffectDispatch {
		t.Fatalf("effect = %d, want dispatch", step.Effect)
	}
	if step.Merge == nil {
		t.Fatal("region choice produced no merge")
	}
	step.Merge(entry)
	if entry.Filters.Region != "NE" {
		t.Errorf("Region = %q, want NE", entry.Filters.Region)
	}
}

func TestCancelFromAnyStage(t *testing.T) {
	for _, stage := range []session.Stage{session.StageColor, session.StageGrade, session.StageOdometer, session.StageRegion} {
		step, err := Next(stage, TokenCancel)
		if err != nil {
			t.Fatalf("cancel from stage %d: %v", stage, err)
		}
		if step.Effect != EffectCancel {
			t.Errorf("cancel from stage %d gave effect %d", stage, step.Effect)
		}
		if step.Merge != nil {
			t.Errorf("cancel from stage %d merged a filter", stage)
		}
	}
}

func TestStaleTokenIsUnexpected(t *testing.T) {
	// A grade button clicked while the session is back at StageNone
	// (e.g. replaced by a fresh lookup) must not advance anything.
	if _, err := Next(session.StageNone, "grade_4.0"); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("Next(StageNone, grade) = %v, want ErrUnexpectedEvent", err)
	}
	if _, err := Next(session.StageColor, "odometer_45000"); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("Next(StageColor, odometer) = %v, want ErrUnexpectedEvent", err)
	}
}

func TestInvalidChoiceIsRejected(t *testing.T) {
	if _, err := Next(session.StageColor, "color_PLAID"); err == nil {
		t.Error("unknown color accepted")
	}
	if _, err := Next(session.StageGrade, "grade_7"); err == nil {
		t.Error("out-of-scale grade accepted")
	}
	if _, err := Next(session.StageRegion, "region_EU"); err == nil {
		t.Error("unknown region accepted")
	}
}

func TestPromptCarriesRunningSummary(t *testing.T) {
	grade := 4.0
	miles := 45000
	entry := &session.Entry{}
	entry.Filters.Color = "BLACK"
	entry.Filters.Grade = &grade
	entry.Filters.Odometer = &miles

	text := Prompt(entry, "Please select region:")
	for _, want := range []string{"Selected color: BLACK", "Selected grade: 4.0", "Selected mileage: 45000", "Please select region:"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q in %q", want, text)
		}
	}
}

func TestEveryMenuEndsWithCancel(t *testing.T) {
	menus := map[string][][]transport.Button{
		"color":    colorMenu(),
		"grade":    gradeMenu(),
		"odometer": odometerMenu(),
		"region":   regionMenu(),
	}
	for name, menu := range menus {
		if len(menu) == 0 {
			t.Errorf("%s menu is empty", name)
			continue
		}
		last := menu[len(menu)-1]
		if len(last) != 1 || last[0].Data != TokenCancel {
			t.Errorf("%s menu does not end with a cancel row", name)
		}
	}

	if rows := len(colorMenu()); rows != len(Colors)+1 {
		t.Errorf("color menu has %d rows, want %d", rows, len(Colors)+1)
	}
	if rows := len(gradeMenu()); rows != len(Grades)+1 {
		t.Errorf("grade menu has %d rows, want %d", rows, len(Grades)+1)
	}
}
