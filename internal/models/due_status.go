package models

import (
	"math"
	"time"
)

// DueStatus is the derived, never persisted, classification of a due date.
type DueStatus string

const (
	DueStatusActive  DueStatus = "active"
	DueStatusDueSoon DueStatus = "due-soon"
	DueStatusOverdue DueStatus = "overdue"
)

// DueSoonWindowDays is the number of remaining days at which an assignment counts as due soon.
const DueSoonWindowDays = 3

// DueClassification is the result of classifying a due date against a reference time.
type DueClassification struct {
	Status        DueStatus `json:"status"`
	DaysRemaining int       `json:"days_remaining"`
}

// ClassifyDueDate maps a due date and the current time to a status and the
// number of remaining days, rounding partial days up.
func ClassifyDueDate(dueDate, now time.Time) DueClassification {
	days := int(math.Ceil(dueDate.Sub(now).Hours() / 24))

	status := DueStatusActive
	switch {
	case now.After(dueDate):
		status = DueStatusOverdue
	case days <= DueSoonWindowDays:
		status = DueStatusDueSoon
	}

	return DueClassification{Status: status, DaysRemaining: days}
}

// IsOverdue reports whether now is strictly past the due date.
func (c DueClassification) IsOverdue() bool {
	return c.Status == DueStatusOverdue
}
