package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is owned by the customer CRUD flows; the transfer core only reads it.
type Customer struct {
	CustomerID     uuid.UUID  `gorm:"column:customer_id;type:uuid;primaryKey" json:"customer_id"`
	Name           string     `gorm:"column:name;not null" json:"name"`
	Phone          string     `gorm:"column:phone" json:"phone"`
	Email          string     `gorm:"column:email" json:"email"`
	Address        string     `gorm:"column:address" json:"address"`
	AllottedUnitID *uuid.UUID `gorm:"column:allotted_unit_id;type:uuid;index" json:"allotted_unit_id"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Customer) TableName() string {
	return "Customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.CustomerID == uuid.Nil {
		c.CustomerID = uuid.New()
	}
	return nil
}

// Broker is an optional intermediary attached to a transfer.
type Broker struct {
	BrokerID  uuid.UUID `gorm:"column:broker_id;type:uuid;primaryKey" json:"broker_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Broker) TableName() string {
	return "Brokers"
}

func (b *Broker) BeforeCreate(tx *gorm.DB) error {
	if b.BrokerID == uuid.Nil {
		b.BrokerID = uuid.New()
	}
	return nil
}
