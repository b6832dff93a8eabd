package models

import "time"

// Priority ranks task urgency. Each value has a display glyph.
type Priority string

const (
	PriorityRed    Priority = "Red"
	PriorityOrange Priority = "Orange"
	PriorityYellow Priority = "Yellow"
	PriorityGreen  Priority = "Green"
	PriorityBlue   Priority = "Blue"
)

// Priorities lists all priorities from most to least urgent.
var Priorities = []Priority{
	PriorityRed, PriorityOrange, PriorityYellow, PriorityGreen, PriorityBlue,
}

// Icon returns the display glyph for the priority. Unknown values map to
// the empty string rather than an error.
func (p Priority) Icon() string {
	switch p {
	case PriorityRed:
		return "\U0001F534" // 🔴
	case PriorityOrange:
		return "\U0001F7E0" // 🟠
	case PriorityYellow:
		return "\U0001F7E1" // 🟡
	case PriorityGreen:
		return "\U0001F7E2" // 🟢
	case PriorityBlue:
		return "\U0001F535" // 🔵
	default:
		return ""
	}
}

// Valid reports whether p is one of the five known priorities.
func (p Priority) Valid() bool {
	return p.Icon() != ""
}

// Status represents the completion state of a task.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusDone       Status = "done"
)

// Task is a unit of work assigned to a user.
//
// Archived is expected to be true exactly when Status is done; the store
// keeps the pair in sync by routing both transitions through CloseTask and
// ReopenTask.
type Task struct {
	ID          int64
	Title       string
	Description string
	Priority    Priority
	Status      Status
	Archived    bool
	AssignedTo  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
