package exam

import (
	"strings"
	"testing"
	"time"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestComputeLoginWindowPartition(t *testing.T) {
	start := mustParse(t, "2024-01-10T09:00:00Z")
	duration := 60 * time.Minute

	tests := []struct {
		name    string
		now     string
		state   WindowState
		minutes int
	}{
		{"well before window", "2024-01-10T07:00:00Z", WindowTooEarly, 110},
		{"one minute before window", "2024-01-10T08:49:00Z", WindowTooEarly, 1},
		{"seconds before window round up", "2024-01-10T08:49:30Z", WindowTooEarly, 1},
		{"window opens", "2024-01-10T08:50:00Z", WindowEligible, 0},
		{"inside window", "2024-01-10T08:55:00Z", WindowEligible, 0},
		{"last instant of window", "2024-01-10T08:59:59Z", WindowEligible, 0},
		{"exam starts", "2024-01-10T09:00:00Z", WindowStarted, 0},
		{"mid exam", "2024-01-10T09:30:00Z", WindowStarted, 0},
		{"last instant of exam", "2024-01-10T09:59:59Z", WindowStarted, 0},
		{"exam ends", "2024-01-10T10:00:00Z", WindowClosed, 0},
		{"long after", "2024-01-11T10:00:00Z", WindowClosed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeLoginWindow(start, duration, mustParse(t, tt.now))
			if w.State != tt.state {
				t.Fatalf("state = %v, want %v", w.State, tt.state)
			}
			if w.MinutesRemaining != tt.minutes {
				t.Fatalf("minutes = %d, want %d", w.MinutesRemaining, tt.minutes)
			}
		})
	}
}

func TestComputeLoginWindowZeroDuration(t *testing.T) {
	start := mustParse(t, "2024-01-10T09:00:00Z")
	// Closed takes precedence over Started at the shared boundary.
	if w := ComputeLoginWindow(start, 0, start); w.State != WindowClosed {
		t.Fatalf("state = %v, want WindowClosed", w.State)
	}
}

func assignmentAt(t *testing.T, startRFC string, durationMinutes int) models.ExamAssignment {
	t.Helper()
	return models.ExamAssignment{
		ScheduledStart:  mustParse(t, startRFC),
		DurationMinutes: durationMinutes,
	}
}

func TestFilterEligibleReturnsOnlyEligible(t *testing.T) {
	now := mustParse(t, "2024-01-10T08:55:00Z")
	assignments := []models.ExamAssignment{
		assignmentAt(t, "2024-01-10T09:00:00Z", 60), // eligible
		assignmentAt(t, "2024-01-10T06:00:00Z", 60), // closed
		assignmentAt(t, "2024-01-10T14:00:00Z", 60), // too early
	}
	eligible, reason := FilterEligible(assignments, now)
	if len(eligible) != 1 {
		t.Fatalf("eligible = %d assignments, want 1", len(eligible))
	}
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if !eligible[0].ScheduledStart.Equal(mustParse(t, "2024-01-10T09:00:00Z")) {
		t.Fatalf("wrong assignment selected: %v", eligible[0].ScheduledStart)
	}
}

func TestFilterEligibleDiagnosticPriority(t *testing.T) {
	now := mustParse(t, "2024-01-10T12:00:00Z")

	closed := assignmentAt(t, "2024-01-10T06:00:00Z", 60)
	started := assignmentAt(t, "2024-01-10T11:30:00Z", 60)
	early := assignmentAt(t, "2024-01-10T14:00:00Z", 60)

	tests := []struct {
		name        string
		assignments []models.ExamAssignment
		want        string
	}{
		{"closed wins over started and early", []models.ExamAssignment{early, started, closed}, "The exam is closed. You cannot log in."},
		{"started wins over early", []models.ExamAssignment{early, started}, "The exam has already started. You cannot log in now."},
		{"too early reports minimum minutes", []models.ExamAssignment{early, assignmentAt(t, "2024-01-10T15:00:00Z", 60)},
			"You can only log in 10 minutes before the scheduled exam time. Time remaining: 110 minutes."},
		{"no candidates", nil, "No valid exam assignments found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, reason := FilterEligible(tt.assignments, now)
			if len(eligible) != 0 {
				t.Fatalf("eligible = %d assignments, want 0", len(eligible))
			}
			if reason != tt.want {
				t.Fatalf("reason = %q, want %q", reason, tt.want)
			}
		})
	}
}

func TestFilterEligibleSingularMinute(t *testing.T) {
	now := mustParse(t, "2024-01-10T08:49:00Z")
	_, reason := FilterEligible([]models.ExamAssignment{assignmentAt(t, "2024-01-10T09:00:00Z", 60)}, now)
	if !strings.HasSuffix(reason, "Time remaining: 1 minute.") {
		t.Fatalf("reason = %q, want singular minute suffix", reason)
	}
}

func TestStartDayRangeAdmitsClosedWindow(t *testing.T) {
	// Starting an exam is gated only by the assignment's UTC day, never by
	// the login window. At noon a 09:00 one-hour exam is closed for login,
	// yet the day range the start path queries with still brackets it.
	now := mustParse(t, "2024-01-10T12:00:00Z")
	scheduled := mustParse(t, "2024-01-10T09:00:00Z")

	if w := ComputeLoginWindow(scheduled, 60*time.Minute, now); w.State != WindowClosed {
		t.Fatalf("state = %v, want WindowClosed", w.State)
	}

	from, to := UTCDayRange(now)
	if scheduled.Before(from) || !scheduled.Before(to) {
		t.Fatalf("day range [%v, %v) does not admit %v", from, to, scheduled)
	}
}

func TestCombineDateTime(t *testing.T) {
	date := mustParse(t, "2024-01-10T00:00:00Z")

	got, err := CombineDateTime(date, "14:30")
	if err != nil {
		t.Fatalf("CombineDateTime: %v", err)
	}
	if want := mustParse(t, "2024-01-10T14:30:00Z"); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A date carrying a stray clock component must not shift the result.
	noisy := mustParse(t, "2024-01-10T23:59:00Z")
	got, err = CombineDateTime(noisy, "09:00")
	if err != nil {
		t.Fatalf("CombineDateTime: %v", err)
	}
	if want := mustParse(t, "2024-01-10T09:00:00Z"); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for _, bad := range []string{"", "9:00am", "25:00", "14:60", "14.30"} {
		if _, err := CombineDateTime(date, bad); err == nil {
			t.Errorf("CombineDateTime(%q) succeeded, want error", bad)
		}
	}
}

func TestUTCDayRange(t *testing.T) {
	from, to := UTCDayRange(mustParse(t, "2024-01-10T23:59:59Z"))
	if want := mustParse(t, "2024-01-10T00:00:00Z"); !from.Equal(want) {
		t.Fatalf("from = %v, want %v", from, want)
	}
	if want := mustParse(t, "2024-01-11T00:00:00Z"); !to.Equal(want) {
		t.Fatalf("to = %v, want %v", to, want)
	}
}

func TestParseSkill(t *testing.T) {
	for _, s := range AllSkills() {
		got, ok := ParseSkill(string(s))
		if !ok || got != s {
			t.Errorf("ParseSkill(%q) = %q, %v", s, got, ok)
		}
	}
	for _, bad := range []string{"", "Listening", "math", "speaking "} {
		if _, ok := ParseSkill(bad); ok {
			t.Errorf("ParseSkill(%q) accepted", bad)
		}
	}
}
