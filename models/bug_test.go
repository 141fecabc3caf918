package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBugStatusIsValid(t *testing.T) {
	for _, status := range []BugStatus{StatusOpen, StatusInProgress, StatusQA, StatusClosed} {
		assert.True(t, status.IsValid(), "expected %q to be valid", status)
	}
	assert.False(t, BugStatus("resolved").IsValid())
	assert.False(t, BugStatus("").IsValid())
}

func TestBugPriorityIsValid(t *testing.T) {
	for _, priority := range []BugPriority{PriorityLow, PriorityMedium, PriorityHigh} {
		assert.True(t, priority.IsValid(), "expected %q to be valid", priority)
	}
	assert.False(t, BugPriority("critical").IsValid())
	assert.False(t, BugPriority("").IsValid())
}

func TestCanTransitionIsPermissive(t *testing.T) {
	statuses := []BugStatus{StatusOpen, StatusInProgress, StatusQA, StatusClosed}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.True(t, CanTransition(from, to), "%s -> %s should be allowed", from, to)
		}
	}

	// Backward moves are deliberately permitted, including reopening.
	assert.True(t, CanTransition(StatusClosed, StatusOpen))
}

func TestCanTransitionRejectsUnknownStates(t *testing.T) {
	assert.False(t, CanTransition(StatusOpen, BugStatus("resolved")))
	assert.False(t, CanTransition(BugStatus("unknown"), StatusOpen))
}

func TestRoleIsValid(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleDev, RoleQA, RoleUser} {
		assert.True(t, role.IsValid(), "expected %q to be valid", role)
	}
	assert.False(t, Role("superadmin").IsValid())
	assert.False(t, Role("").IsValid())
}
