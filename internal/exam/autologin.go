package exam

import (
	"time"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

// AutoLoginCandidate pairs a scheduled login session with its assignment for
// the promotion scan.
type AutoLoginCandidate struct {
	Session    models.LoginSession
	Assignment models.ExamAssignment
}

// Due reports whether the session's trigger condition holds at now: either
// its scheduled auto-login instant has passed, or no instant is set and the
// exam was explicitly started by an agent.
func (c AutoLoginCandidate) Due(now time.Time) bool {
	if c.Session.AutoLoginTime != nil {
		return !now.Before(*c.Session.AutoLoginTime)
	}
	return c.Assignment.ExamStarted
}

// NextAutoLogin picks the session to promote on this scan, if any.
// Candidates must be given in creation order: the policy is first-ready-wins,
// not soonest-start-wins. A student who already holds a logged_in session on
// the PC is skipped without error, and at most one candidate is returned per
// scan.
func NextAutoLogin(candidates []AutoLoginCandidate, loggedIn map[uint]bool, now time.Time) (AutoLoginCandidate, bool) {
	for _, c := range candidates {
		if !c.Due(now) {
			continue
		}
		if loggedIn[c.Session.StudentIDRef] {
			continue
		}
		return c, true
	}
	return AutoLoginCandidate{}, false
}
