package exam

import (
	"testing"
	"time"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

func candidate(sessionID, studentID uint, autoLogin *time.Time, examStarted bool) AutoLoginCandidate {
	return AutoLoginCandidate{
		Session: models.LoginSession{
			ID:            sessionID,
			StudentIDRef:  studentID,
			AutoLoginTime: autoLogin,
			Status:        models.SessionScheduled,
		},
		Assignment: models.ExamAssignment{ExamStarted: examStarted},
	}
}

func TestNextAutoLoginPromotesAtScheduledInstant(t *testing.T) {
	at := mustParse(t, "2024-01-10T09:05:00Z")
	c := candidate(1, 7, &at, false)

	if _, ok := NextAutoLogin([]AutoLoginCandidate{c}, nil, at.Add(-time.Second)); ok {
		t.Fatal("promoted before auto-login time")
	}
	got, ok := NextAutoLogin([]AutoLoginCandidate{c}, nil, at)
	if !ok {
		t.Fatal("not promoted at auto-login time")
	}
	if got.Session.ID != 1 {
		t.Fatalf("promoted session %d, want 1", got.Session.ID)
	}
	if _, ok := NextAutoLogin([]AutoLoginCandidate{c}, nil, at.Add(time.Hour)); !ok {
		t.Fatal("not promoted after auto-login time")
	}
}

func TestNextAutoLoginNilTimeRequiresExamStarted(t *testing.T) {
	now := mustParse(t, "2024-01-10T09:05:00Z")

	// No auto-login time and exam not started: never promoted, regardless of now.
	unstarted := candidate(1, 7, nil, false)
	for _, at := range []time.Time{now, now.Add(24 * time.Hour), now.Add(365 * 24 * time.Hour)} {
		if _, ok := NextAutoLogin([]AutoLoginCandidate{unstarted}, nil, at); ok {
			t.Fatalf("promoted unstarted assignment at %v", at)
		}
	}

	started := candidate(2, 7, nil, true)
	if _, ok := NextAutoLogin([]AutoLoginCandidate{started}, nil, now); !ok {
		t.Fatal("agent-started assignment not promoted")
	}
}

func TestNextAutoLoginSkipsAlreadyLoggedIn(t *testing.T) {
	now := mustParse(t, "2024-01-10T09:05:00Z")
	earlier := now.Add(-time.Minute)

	blocked := candidate(1, 7, &earlier, false)
	other := candidate(2, 8, &earlier, false)

	got, ok := NextAutoLogin([]AutoLoginCandidate{blocked, other}, map[uint]bool{7: true}, now)
	if !ok {
		t.Fatal("no promotion, want session 2")
	}
	if got.Session.ID != 2 {
		t.Fatalf("promoted session %d, want 2", got.Session.ID)
	}

	if _, ok := NextAutoLogin([]AutoLoginCandidate{blocked}, map[uint]bool{7: true}, now); ok {
		t.Fatal("promoted despite existing logged_in session")
	}
}

func TestNextAutoLoginFirstReadyWins(t *testing.T) {
	now := mustParse(t, "2024-01-10T09:05:00Z")
	soon := now.Add(-time.Minute)
	sooner := now.Add(-time.Hour)

	// Candidates arrive in creation order; the first due one wins even when a
	// later candidate became due earlier on the wall clock.
	first := candidate(1, 7, &soon, false)
	second := candidate(2, 8, &sooner, false)

	got, ok := NextAutoLogin([]AutoLoginCandidate{first, second}, nil, now)
	if !ok || got.Session.ID != 1 {
		t.Fatalf("promoted session %d, %v; want 1", got.Session.ID, ok)
	}
}

func TestNextAutoLoginOnePerScan(t *testing.T) {
	now := mustParse(t, "2024-01-10T09:05:00Z")
	due := now.Add(-time.Minute)

	candidates := []AutoLoginCandidate{
		candidate(1, 7, &due, false),
		candidate(2, 8, &due, false),
		candidate(3, 9, &due, false),
	}
	got, ok := NextAutoLogin(candidates, nil, now)
	if !ok || got.Session.ID != 1 {
		t.Fatalf("first scan promoted %d, want 1", got.Session.ID)
	}

	// Simulate the caller committing the promotion; the next scan picks the
	// next student, never two at once.
	got, ok = NextAutoLogin(candidates[1:], map[uint]bool{7: true}, now)
	if !ok || got.Session.ID != 2 {
		t.Fatalf("second scan promoted %d, want 2", got.Session.ID)
	}
}

func TestNextAutoLoginOneLoggedInPerStudentPC(t *testing.T) {
	now := mustParse(t, "2024-01-10T09:05:00Z")
	due := now.Add(-time.Minute)

	// Two scheduled sessions for the same student on the same PC, both due.
	// Only one may ever reach logged_in: once the first promotion commits,
	// every later scan must skip the second session. The controller enforces
	// the same rule inside the promotion UPDATE's WHERE clause, so two
	// concurrent scans cannot each commit a different session.
	first := candidate(1, 7, &due, false)
	second := candidate(2, 7, &due, false)

	got, ok := NextAutoLogin([]AutoLoginCandidate{first, second}, nil, now)
	if !ok || got.Session.ID != 1 {
		t.Fatalf("first scan promoted %d, %v; want 1", got.Session.ID, ok)
	}

	if _, ok := NextAutoLogin([]AutoLoginCandidate{second}, map[uint]bool{7: true}, now); ok {
		t.Fatal("second session promoted for a student already logged in on the PC")
	}
}
