package dto

import (
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives page counts. A non-positive page size means everything fit on one page.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page         int    `query:"page" validate:"omitempty,gte=1"`
	PageSize     int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
	Action       string `query:"action"`
	ActorID      uint   `query:"actor_id"`
	AssignmentID uint   `query:"-"`
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	EntityType   string                 `json:"entity_type"`
	EntityID     *uint                  `json:"entity_id"`
	AssignmentID *uint                  `json:"assignment_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		AssignmentID: entry.AssignmentID,
		Metadata:     metadataFromJSON(entry.Metadata),
		CreatedAt:    entry.CreatedAt,
	}
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}
