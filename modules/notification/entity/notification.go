package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	coreEntity "meetsync-api/core/entity"

	"github.com/google/uuid"
)

// Notification kinds emitted by the proposal engine.
const (
	KindProposalsReady   = "proposals_ready"
	KindProposalsExpired = "proposals_expired"
	KindGenerationFailed = "generation_failed"
)

// JSONB wraps a map for postgres jsonb columns.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb scan type %T", value)
	}
	return json.Unmarshal(b, j)
}

// Notification is a stored engine outcome row. Delivery channels are out
// of scope, rows are only read back through the API.
type Notification struct {
	coreEntity.BaseEntity
	UserID  uuid.UUID `db:"user_id" json:"user_id"`
	Title   string    `db:"title" json:"title"`
	Message string    `db:"message" json:"message"`
	Type    string    `db:"type" json:"type"`
	Data    JSONB     `db:"data" json:"data,omitempty"`
	IsRead  bool      `db:"is_read" json:"is_read"`
}

type PaginatedNotificationEntity struct {
	Items      []Notification `json:"items"`
	TotalItems int            `json:"total_items"`
	PageNumber int            `json:"page_number"`
	PageSize   int            `json:"page_size"`
}
