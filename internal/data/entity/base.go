package entity

import (
	"time"

	"github.com/google/uuid"
)

// BaseNoDelete kolom standar untuk record yang tidak pernah dihapus
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
