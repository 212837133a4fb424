package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransferStatus string

const (
	// TransferRecorded: persisted, charge consumption not yet confirmed.
	TransferRecorded TransferStatus = "RECORDED"
	// TransferConsumed: charge consumed and linked. Terminal success.
	TransferConsumed TransferStatus = "CONSUMED"
	// TransferOrphaned: awaiting manual reconciliation.
	TransferOrphaned TransferStatus = "ORPHANED"
)

// NewOwner is the incoming owner captured on the transfer form.
type NewOwner struct {
	Name    string `gorm:"column:new_owner_name;not null" json:"name" validate:"required"`
	Number  string `gorm:"column:new_owner_number" json:"number"`
	Phone   string `gorm:"column:new_owner_phone" json:"phone"`
	Address string `gorm:"column:new_owner_address" json:"address"`
}

// TransferCharge is the fee captured on the transfer form.
type TransferCharge struct {
	Amount  decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Date    string          `gorm:"column:charge_date" json:"date"`
	Remarks *string         `gorm:"column:remarks" json:"remarks"`
}

// TransferTransaction links old owner, new owner, unit and payment evidence.
// Only Remarks, verification and lifecycle status change after creation.
type TransferTransaction struct {
	TransferID      uuid.UUID      `gorm:"column:transfer_id;type:uuid;primaryKey" json:"transfer_id"`
	CustomerID      uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	UnitID          uuid.UUID      `gorm:"column:unit_id;type:uuid;not null;index" json:"unit_id"`
	ProjectID       *uuid.UUID     `gorm:"column:project_id;type:uuid" json:"project_id"`
	NewOwner        NewOwner       `gorm:"embedded" json:"new_owner"`
	BrokerID        *uuid.UUID     `gorm:"column:broker_id;type:uuid" json:"broker_id"`
	Charge          TransferCharge `gorm:"embedded" json:"transfer_charge"`
	PaymentMode     PaymentMode    `gorm:"column:payment_mode;type:varchar(10);not null" json:"-"`
	EvidenceDetails datatypes.JSON `gorm:"column:evidence_details;not null" json:"-"`
	ChargeID        *uuid.UUID     `gorm:"column:charge_id;type:uuid" json:"charge_id"`
	Status          TransferStatus `gorm:"column:status;type:varchar(20);not null;default:'RECORDED';index" json:"status"`
	IsVerified      bool           `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	VerifiedAt      *time.Time     `gorm:"column:verified_at" json:"verified_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (TransferTransaction) TableName() string {
	return "UnitTransfers"
}

func (t *TransferTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransferID == uuid.Nil {
		t.TransferID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TransferRecorded
	}
	return nil
}

// Evidence decodes the stored payment evidence.
func (t *TransferTransaction) Evidence() (PaymentEvidence, error) {
	return DecodeEvidence(t.PaymentMode, t.EvidenceDetails)
}

// MarshalJSON adds the decoded payment evidence in its wire shape.
func (t TransferTransaction) MarshalJSON() ([]byte, error) {
	type plain TransferTransaction
	out := struct {
		plain
		PaymentEvidence *EvidenceView `json:"payment_evidence"`
	}{plain: plain(t)}
	if ev, err := t.Evidence(); err == nil {
		v := ViewOf(ev)
		out.PaymentEvidence = &v
	}
	return json.Marshal(out)
}

// SetEvidence encodes e into the mode and details columns.
func (t *TransferTransaction) SetEvidence(e PaymentEvidence) error {
	mode, raw, err := EncodeEvidence(e)
	if err != nil {
		return err
	}
	t.PaymentMode = mode
	t.EvidenceDetails = raw
	return nil
}

// OwnerHistoryEntry is an append-only row produced by a completed transfer. It
// records the outgoing owner of the unit.
type OwnerHistoryEntry struct {
	EntryID       uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	UnitID        uuid.UUID `gorm:"column:unit_id;type:uuid;not null;uniqueIndex:uq_owner_history_unit_seq,priority:1" json:"unit_id"`
	OwnerNumber   int       `gorm:"column:owner_number;not null;uniqueIndex:uq_owner_history_unit_seq,priority:2" json:"owner_number"`
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	TransferID    uuid.UUID `gorm:"column:transfer_id;type:uuid;not null;uniqueIndex" json:"transfer_id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	Phone         string    `gorm:"column:phone" json:"phone"`
	Address       string    `gorm:"column:address" json:"address"`
	EffectiveDate time.Time `gorm:"column:effective_date;not null" json:"effective_date"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (OwnerHistoryEntry) TableName() string {
	return "UnitOwnerHistory"
}

func (e *OwnerHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.EntryID == uuid.Nil {
		e.EntryID = uuid.New()
	}
	return nil
}
