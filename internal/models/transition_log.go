package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransitionLog records one committed workflow transition for auditing.
// Rows are append-only.
type TransitionLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	EntityType    string            `gorm:"size:32;not null;index" json:"entity_type"`
	EntityID      uint              `gorm:"not null;index" json:"entity_id"`
	Transition    string            `gorm:"size:64;not null" json:"transition"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
