package models

import "testing"

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{AssignmentAssigned, AssignmentInProgress, true},
		{AssignmentAssigned, AssignmentCancelled, true},
		{AssignmentAssigned, AssignmentCompleted, false},
		{AssignmentInProgress, AssignmentCompleted, true},
		{AssignmentInProgress, AssignmentCancelled, true},
		{AssignmentInProgress, AssignmentAssigned, false},
		{AssignmentCompleted, AssignmentInProgress, false},
		{AssignmentCompleted, AssignmentCancelled, false},
		{AssignmentCancelled, AssignmentAssigned, false},
		{AssignmentCancelled, AssignmentInProgress, false},
		// Same-status writes are allowed (idempotent updates).
		{AssignmentAssigned, AssignmentAssigned, true},
		{AssignmentCompleted, AssignmentCompleted, true},
	}
	for _, tt := range tests {
		if got := ValidStatusTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidStatusTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsAssignmentStatus(t *testing.T) {
	for _, s := range []string{AssignmentAssigned, AssignmentInProgress, AssignmentCompleted, AssignmentCancelled} {
		if !IsAssignmentStatus(s) {
			t.Errorf("IsAssignmentStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "done", "ASSIGNED", "in progress"} {
		if IsAssignmentStatus(s) {
			t.Errorf("IsAssignmentStatus(%q) = true", s)
		}
	}
}
