package models

import "time"

// ClassEnrollment links a student to a class. It is the roster the statistics
// use as the denominator for submission rates.
type ClassEnrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_class_enrollments_class_student" json:"class_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_class_enrollments_class_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
