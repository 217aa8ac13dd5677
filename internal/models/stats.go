package models

import (
	"math"
	"time"
)

// SubmissionTally holds the raw counts the statistics are derived from.
type SubmissionTally struct {
	OnTime      int     `json:"on_time"`
	Late        int     `json:"late"`
	Graded      int     `json:"graded"`
	LateTotal   int     `json:"late_total"`
	MarkedCount int     `json:"marked_count"`
	MarksSum    float64 `json:"marks_sum"`
}

// Stats summarises submission progress for one assignment.
type Stats struct {
	TotalStudents     int       `json:"total_students"`
	SubmittedCount    int       `json:"submitted_count"`
	GradedCount       int       `json:"graded_count"`
	LateCount         int       `json:"late_count"`
	LateTotal         int       `json:"late_total"`
	PendingCount      int       `json:"pending_count"`
	NotSubmittedCount int       `json:"not_submitted_count"`
	SubmissionRate    int       `json:"submission_rate"`
	GradedRate        int       `json:"graded_rate"`
	AverageMarks      *float64  `json:"average_marks"`
	Status            DueStatus `json:"status"`
	DaysRemaining     int       `json:"days_remaining"`
}

// TallySubmissions counts submissions by status.
func TallySubmissions(submissions []Submission) SubmissionTally {
	var tally SubmissionTally
	for _, submission := range submissions {
		switch submission.Status {
		case SubmissionStatusSubmitted:
			tally.OnTime++
		case SubmissionStatusLate:
			tally.Late++
		case SubmissionStatusGraded:
			tally.Graded++
			if submission.Marks != nil {
				tally.MarkedCount++
				tally.MarksSum += *submission.Marks
			}
		}
		if submission.IsLate {
			tally.LateTotal++
		}
	}
	return tally
}

// StatsFromTally derives statistics from a tally and the class size.
// A class with no students yields a zero submission rate.
func StatsFromTally(tally SubmissionTally, totalStudents int, dueDate, now time.Time) Stats {
	submitted := tally.OnTime + tally.Late + tally.Graded
	classification := ClassifyDueDate(dueDate, now)

	stats := Stats{
		TotalStudents:  totalStudents,
		SubmittedCount: submitted,
		GradedCount:    tally.Graded,
		LateCount:      tally.Late,
		LateTotal:      tally.LateTotal,
		PendingCount:   tally.OnTime + tally.Late,
		SubmissionRate: percent(submitted, totalStudents),
		GradedRate:     percent(tally.Graded, submitted),
		Status:         classification.Status,
		DaysRemaining:  classification.DaysRemaining,
	}

	if missing := totalStudents - submitted; missing > 0 {
		stats.NotSubmittedCount = missing
	}

	if tally.MarkedCount > 0 {
		average := math.Round(tally.MarksSum/float64(tally.MarkedCount)*100) / 100
		stats.AverageMarks = &average
	}

	return stats
}

// CountDistinct returns the number of distinct non-zero ids.
func CountDistinct(ids []uint) int {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
