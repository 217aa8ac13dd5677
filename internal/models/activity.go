package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an audit entry for a lifecycle change made by a teacher, admin or student.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole    string            `gorm:"size:32;not null" json:"actor_role"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	EntityType   string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID     *uint             `json:"entity_id"`
	AssignmentID *uint             `gorm:"index" json:"assignment_id"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}
