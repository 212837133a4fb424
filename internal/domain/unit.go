package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Project struct {
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	City      string    `gorm:"column:city" json:"city"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Project) TableName() string {
	return "Projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == uuid.Nil {
		p.ProjectID = uuid.New()
	}
	return nil
}

// Unit is immutable once created and belongs to a project.
type Unit struct {
	UnitID    uuid.UUID       `gorm:"column:unit_id;type:uuid;primaryKey" json:"unit_id"`
	ProjectID uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Size      string          `gorm:"column:size" json:"size"`
	BasePrice decimal.Decimal `gorm:"column:base_price;type:decimal(18,2);not null;default:0" json:"base_price"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Unit) TableName() string {
	return "Units"
}

func (u *Unit) BeforeCreate(tx *gorm.DB) error {
	if u.UnitID == uuid.Nil {
		u.UnitID = uuid.New()
	}
	return nil
}

// Eligibility is the result of checking whether a customer can transfer a unit.
type Eligibility struct {
	CustomerID uuid.UUID  `json:"customer_id"`
	HasBooking bool       `json:"has_booking"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	UnitName   *string    `json:"unit_name,omitempty"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty"`
}
