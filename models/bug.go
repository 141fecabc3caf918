package models

import "gorm.io/gorm"

// BugStatus is the workflow state of a bug.
type BugStatus string

const (
	StatusOpen       BugStatus = "open"
	StatusInProgress BugStatus = "inprogress"
	StatusQA         BugStatus = "qa"
	StatusClosed     BugStatus = "closed"
)

func (s BugStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusQA, StatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether a bug may move from one status to another.
// The current policy is fully permissive: any state can move to any other,
// including closed back to open. All transition rules live here so a
// stricter workflow is a one-place change.
func CanTransition(from, to BugStatus) bool {
	return from.IsValid() && to.IsValid()
}

// BugPriority is the reporter-supplied severity of a bug.
type BugPriority string

const (
	PriorityLow    BugPriority = "low"
	PriorityMedium BugPriority = "medium"
	PriorityHigh   BugPriority = "high"
)

func (p BugPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Bug is a tracked defect report. ReporterID is always the authenticated
// creator and never changes after creation. AssignedToID is set by an admin
// through assignment, which also approves the bug and moves it to
// inprogress.
type Bug struct {
	gorm.Model
	Title        string `gorm:"not null"`
	Description  string
	Status       BugStatus   `gorm:"type:varchar(16);not null;default:open"`
	Priority     BugPriority `gorm:"type:varchar(16);not null;default:low"`
	ReporterID   uint        `gorm:"not null;index"`
	Reporter     User        `gorm:"foreignKey:ReporterID"`
	AssignedToID *uint       `gorm:"index"`
	AssignedTo   *User       `gorm:"foreignKey:AssignedToID"`
	IsApproved   bool        `gorm:"not null;default:false"`
}
