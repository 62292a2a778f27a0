// Package validate holds the pure input validators for lookup
// parameters. Every validator returns the specific reason on failure so
// the bot can surface it to the user verbatim.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinDate is the provider's earliest supported historical date.
var MinDate = time.Date(2018, time.October, 8, 0, 0, 0, 0, time.UTC)

// Regions are the supported geographic region codes.
var Regions = []string{"NE", "SE", "MW", "SW", "W"}

const (
	vinLength   = 17
	odometerMax = 999999
	yearMin     = 1885
)

// VIN checks a Vehicle Identification Number: exactly 17 alphanumeric
// characters, excluding I, O and Q (disallowed in real VINs to avoid
// confusion with 1 and 0).
func VIN(vin string) error {
	if len(vin) != vinLength {
		return fmt.Errorf("VIN must be exactly %d characters, got %d", vinLength, len(vin))
	}
	for _, r := range vin {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			switch r {
			case 'I', 'i', 'O', 'o', 'Q', 'q':
				return fmt.Errorf("VIN must not contain the letter %c", r)
			}
		default:
			return fmt.Errorf("VIN must be alphanumeric, found %q", r)
		}
	}
	return nil
}

// YearMakeModel checks a Year/Make/Model triple and returns the parsed
// year. now bounds the acceptable model years.
func YearMakeModel(yearRaw, make, model string, now time.Time) (int, error) {
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return 0, fmt.Errorf("year %q is not a number", yearRaw)
	}
	maxYear := now.Year() + 1
	if year < yearMin || year > maxYear {
		return 0, fmt.Errorf("year must be between %d and %d", yearMin, maxYear)
	}
	if len(make) < 2 {
		return 0, fmt.Errorf("make %q is too short", make)
	}
	if len(model) < 2 {
		return 0, fmt.Errorf("model %q is too short", model)
	}
	return year, nil
}

// NormalizeGrade maps a condition grade onto the 0-5 decimal scale. The
// provider's wire format uses a 0-50 integer scale while the chat
// surface uses 0-5 decimals, so values above 5 up to 50 are treated as
// already-scaled and divided by 10. Values at or below 5 are taken as
// decimals, so 5 means 5.0, not 0.5.
func NormalizeGrade(raw float64) (float64, error) {
	switch {
	case raw < 0:
		return 0, fmt.Errorf("grade must not be negative, got %g", raw)
	case raw <= 5:
		return raw, nil
	case raw <= 50:
		return raw / 10, nil
	default:
		return 0, fmt.Errorf("grade %g is outside both the 0-5 and 0-50 scales", raw)
	}
}

// Grade parses and normalizes a condition grade from user input.
func Grade(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("grade %q is not a number", raw)
	}
	return NormalizeGrade(v)
}

// Odometer parses a mileage value in miles.
func Odometer(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("odometer %q is not a whole number", raw)
	}
	if v < 0 || v > odometerMax {
		return 0, fmt.Errorf("odometer must be between 0 and %d miles", odometerMax)
	}
	return v, nil
}

// Region matches a region code case-insensitively and returns it
// uppercased.
func Region(raw string) (string, error) {
	for _, r := range Regions {
		if strings.EqualFold(raw, r) {
			return r, nil
		}
	}
	return "", fmt.Errorf("region %q is not one of %s", raw, strings.Join(Regions, "/"))
}

// Date parses an ISO calendar date and checks it against the provider's
// coverage window: no earlier than MinDate, no later than today.
func Date(raw string, now time.Time) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a valid YYYY-MM-DD date", raw)
	}
	if d.Before(MinDate) {
		return time.Time{}, fmt.Errorf("date must not be before %s", MinDate.Format("2006-01-02"))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return time.Time{}, fmt.Errorf("date %s is in the future", raw)
	}
	return d, nil
}
