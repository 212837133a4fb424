package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChargeStatus string

const (
	ChargePending  ChargeStatus = "PENDING"
	ChargeConsumed ChargeStatus = "CONSUMED"
)

// TransferChargePayment is one ledger entry. It moves PENDING -> CONSUMED once
// and never back; TransferID is set when the consumption is tied to a transfer.
type TransferChargePayment struct {
	ChargeID   uuid.UUID       `gorm:"column:charge_id;type:uuid;primaryKey" json:"charge_id"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status     ChargeStatus    `gorm:"column:status;type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TransferID *uuid.UUID      `gorm:"column:transfer_id;type:uuid;index" json:"transfer_id"`
	ConsumedAt *time.Time      `gorm:"column:consumed_at" json:"consumed_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (TransferChargePayment) TableName() string {
	return "TransferCharges"
}

func (p *TransferChargePayment) BeforeCreate(tx *gorm.DB) error {
	if p.ChargeID == uuid.Nil {
		p.ChargeID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ChargePending
	}
	return nil
}

// PreConsumed reports whether the entry was consumed without being linked to a
// transfer, which is what the standalone mark-used step leaves behind.
func (p *TransferChargePayment) PreConsumed() bool {
	return p.Status == ChargeConsumed && p.TransferID == nil
}

// ChargeCheck is the charge-status read for a customer.
type ChargeCheck struct {
	CustomerID        uuid.UUID `json:"customer_id"`
	HasTransferCharge bool      `json:"has_transfer_charge"`
	PendingCount      int       `json:"pending_count"`
}
