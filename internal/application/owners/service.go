package owners

import (
	"context"
	"errors"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read side over completed transfers.
type Service struct {
	DB *gorm.DB
}

// FetchUnitOwners lists prior owners of a unit by owner number. A unit with no
// transfer history yields an empty slice.
func (s *Service) FetchUnitOwners(ctx context.Context, unitID uuid.UUID) ([]domain.OwnerHistoryEntry, error) {
	var unit domain.Unit
	if err := s.DB.WithContext(ctx).Where("unit_id = ?", unitID).First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("unit", unitID.String())
		}
		return nil, err
	}

	out := []domain.OwnerHistoryEntry{}
	if err := s.DB.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("owner_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UnitView is a unit with its project name resolved.
type UnitView struct {
	domain.Unit
	ProjectName string `json:"project_name"`
}

// TransferDetail is the aggregate behind the transfer detail screen.
type TransferDetail struct {
	Transaction     domain.TransferTransaction `json:"transaction"`
	Customer        *domain.Customer           `json:"customer"`
	Unit            *UnitView                  `json:"unit"`
	NewOwner        domain.NewOwner            `json:"new_owner"`
	Broker          *domain.Broker             `json:"broker"`
	TransferCharge  domain.TransferCharge      `json:"transfer_charge"`
	PaymentEvidence domain.EvidenceView        `json:"payment_evidence"`
}

// FetchTransferByID assembles the transfer with its customer, unit, broker and
// payment evidence.
func (s *Service) FetchTransferByID(ctx context.Context, transferID uuid.UUID) (*TransferDetail, error) {
	db := s.DB.WithContext(ctx)

	var t domain.TransferTransaction
	if err := db.Where("transfer_id = ?", transferID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("transfer", transferID.String())
		}
		return nil, err
	}

	evidence, err := t.Evidence()
	if err != nil {
		return nil, err
	}

	detail := &TransferDetail{
		Transaction:     t,
		NewOwner:        t.NewOwner,
		TransferCharge:  t.Charge,
		PaymentEvidence: domain.ViewOf(evidence),
	}

	var customer domain.Customer
	if err := db.Where("customer_id = ?", t.CustomerID).First(&customer).Error; err == nil {
		detail.Customer = &customer
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var unit domain.Unit
	if err := db.Where("unit_id = ?", t.UnitID).First(&unit).Error; err == nil {
		view := &UnitView{Unit: unit}
		var project domain.Project
		if err := db.Where("project_id = ?", unit.ProjectID).Select("project_id", "name").First(&project).Error; err == nil {
			view.ProjectName = project.Name
		}
		detail.Unit = view
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if t.BrokerID != nil {
		var broker domain.Broker
		if err := db.Where("broker_id = ?", *t.BrokerID).First(&broker).Error; err == nil {
			detail.Broker = &broker
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return detail, nil
}
