// Package exam holds the eligibility and auto-login decision core. Every
// function here is a pure function of record data and the current instant;
// the controllers own all reads and writes around it.
package exam

import (
	"fmt"
	"time"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

// LoginLeadTime is how long before the scheduled start a student may log in.
// The pre-window lets a student authenticate and be seated before the proctor
// starts the clock; once the start passes, new logins are refused.
const LoginLeadTime = 10 * time.Minute

type WindowState int

const (
	WindowEligible WindowState = iota
	WindowTooEarly
	WindowStarted
	WindowClosed
)

// Window classifies one assignment against the clock.
type Window struct {
	State            WindowState
	MinutesRemaining int // minutes until the window opens, when TooEarly
}

// ComputeLoginWindow partitions the timeline around one assignment:
// (-inf, start-10m) TooEarly, [start-10m, start) Eligible,
// [start, end) Started, [end, inf) Closed. Evaluated closed-first so an
// over-running clock never reports Started.
func ComputeLoginWindow(start time.Time, duration time.Duration, now time.Time) Window {
	end := start.Add(duration)
	open := start.Add(-LoginLeadTime)
	switch {
	case !now.Before(end):
		return Window{State: WindowClosed}
	case !now.Before(start):
		return Window{State: WindowStarted}
	case now.Before(open):
		remaining := open.Sub(now)
		minutes := int((remaining + time.Minute - 1) / time.Minute)
		return Window{State: WindowTooEarly, MinutesRemaining: minutes}
	default:
		return Window{State: WindowEligible}
	}
}

// FilterEligible returns the assignments a student may log into right now.
// When none qualify it reports a single best-effort reason, scanning all
// candidates in priority order: closed, started, soonest-opening window,
// generic fallback.
func FilterEligible(assignments []models.ExamAssignment, now time.Time) ([]models.ExamAssignment, string) {
	var eligible []models.ExamAssignment
	hasClosed := false
	hasStarted := false
	minRemaining := -1

	for _, a := range assignments {
		w := ComputeLoginWindow(a.ScheduledStart, time.Duration(a.DurationMinutes)*time.Minute, now)
		switch w.State {
		case WindowEligible:
			eligible = append(eligible, a)
		case WindowClosed:
			hasClosed = true
		case WindowStarted:
			hasStarted = true
		case WindowTooEarly:
			if minRemaining < 0 || w.MinutesRemaining < minRemaining {
				minRemaining = w.MinutesRemaining
			}
		}
	}

	if len(eligible) > 0 {
		return eligible, ""
	}
	switch {
	case hasClosed:
		return nil, "The exam is closed. You cannot log in."
	case hasStarted:
		return nil, "The exam has already started. You cannot log in now."
	case minRemaining >= 0:
		plural := "s"
		if minRemaining == 1 {
			plural = ""
		}
		return nil, fmt.Sprintf(
			"You can only log in 10 minutes before the scheduled exam time. Time remaining: %d minute%s.",
			minRemaining, plural)
	default:
		return nil, "No valid exam assignments found."
	}
}

// CombineDateTime builds the scheduled start instant from a calendar date and
// an "HH:MM" wall-clock time, both in UTC. Called once at assignment creation;
// the result is stored so no handler re-derives it.
func CombineDateTime(date time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exam time %q: %w", hhmm, err)
	}
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

// UTCDayRange returns [today 00:00, tomorrow 00:00) around now, the day
// boundary used by every "scheduled for today" query.
func UTCDayRange(now time.Time) (time.Time, time.Time) {
	t := now.UTC()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return today, today.AddDate(0, 0, 1)
}
