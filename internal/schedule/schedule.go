// Package schedule implements the calendar arithmetic behind recurring rules.
//
// Each frequency has its own Stepper. Month and year steps keep the rule's
// anchor day-of-month and clamp it to the length of the target month, so a
// rule anchored on the 31st fires on Feb 28 (or 29) and returns to the 31st
// in March.
package schedule

import (
	"fmt"
	"time"
)

// Frequency is the cadence of a recurring rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Valid reports whether f has a registered stepper.
func (f Frequency) Valid() bool {
	_, ok := steppers[f]
	return ok
}

// Stepper advances a due date by one period.
type Stepper interface {
	// Next returns the due date one period after from. anchorDay is the
	// preferred day-of-month for calendar-month based frequencies.
	Next(from time.Time, anchorDay int) time.Time
}

type dailyStepper struct{}

func (dailyStepper) Next(from time.Time, _ int) time.Time { return from.AddDate(0, 0, 1) }

type weeklyStepper struct{}

func (weeklyStepper) Next(from time.Time, _ int) time.Time { return from.AddDate(0, 0, 7) }

type monthlyStepper struct{}

func (monthlyStepper) Next(from time.Time, anchorDay int) time.Time {
	year, month := from.Year(), from.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	return clamp(year, month, anchorDay, from.Location())
}

type yearlyStepper struct{}

func (yearlyStepper) Next(from time.Time, anchorDay int) time.Time {
	return clamp(from.Year()+1, from.Month(), anchorDay, from.Location())
}

var steppers = map[Frequency]Stepper{
	Daily:   dailyStepper{},
	Weekly:  weeklyStepper{},
	Monthly: monthlyStepper{},
	Yearly:  yearlyStepper{},
}

// StepperFor returns the stepper registered for f.
func StepperFor(f Frequency) (Stepper, error) {
	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency %q", f)
	}
	return s, nil
}

// Advance moves a due date forward by one period of f. anchorDay <= 0 means
// "use the day of from".
func Advance(from time.Time, f Frequency, anchorDay int) (time.Time, error) {
	s, err := StepperFor(f)
	if err != nil {
		return time.Time{}, err
	}
	if anchorDay <= 0 {
		anchorDay = from.Day()
	}
	return s.Next(Day(from), anchorDay), nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clamp(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
