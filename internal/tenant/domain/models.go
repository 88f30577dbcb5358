// Package domain contains the tenant identity models and contracts.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the tenant lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrial, StatusSuspended, StatusCancelled, StatusPending:
		return true
	}
	return false
}

// Settings keys stored inside the relational JSONB column. The external code
// lives here because historical rows predate it having a dedicated column.
const (
	SettingExternalCode = "external_code"
	SettingSlug         = "slug"
)

// Tenant is the relational system-of-record row.
type Tenant struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Name      string            `gorm:"type:text;not null"`
	Plan      string            `gorm:"type:text;not null"`
	Status    Status            `gorm:"type:text;not null"`
	MRR       float64           `gorm:"column:mrr;not null;default:0"`
	Settings  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Counter backs the shared monotonic external-code sequence.
type Counter struct {
	Name  string `gorm:"primaryKey;type:text"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (Counter) TableName() string { return "counters" }

// Record is the normalized tenant shape shared by both backends. Fast-store
// documents are stored in exactly this form; relational rows are translated
// into it so callers never see which backend answered.
type Record struct {
	ID           string         `json:"id"`
	ExternalCode string         `json:"external_code"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug,omitempty"`
	Plan         string         `json:"plan"`
	Status       Status         `json:"status"`
	MRR          float64        `json:"mrr"`
	Settings     map[string]any `json:"settings,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToRecord flattens the relational row into the normalized shape, lifting the
// identity fields out of the settings bag.
func (t *Tenant) ToRecord() Record {
	settings := make(map[string]any, len(t.Settings))
	for key, value := range t.Settings {
		settings[key] = value
	}

	externalCode, _ := settings[SettingExternalCode].(string)
	slug, _ := settings[SettingSlug].(string)
	delete(settings, SettingExternalCode)
	delete(settings, SettingSlug)

	return Record{
		ID:           t.ID.String(),
		ExternalCode: externalCode,
		Name:         t.Name,
		Slug:         slug,
		Plan:         t.Plan,
		Status:       t.Status,
		MRR:          t.MRR,
		Settings:     settings,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// Source tags which backend produced a resolved record.
type Source int

const (
	SourceNone Source = iota
	SourceFast
	SourceRelational
)

func (s Source) String() string {
	switch s {
	case SourceFast:
		return "fast"
	case SourceRelational:
		return "relational"
	default:
		return "none"
	}
}
