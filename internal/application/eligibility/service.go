package eligibility

import (
	"context"
	"errors"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service answers whether a customer holds an allotted unit. Read only.
type Service struct {
	DB *gorm.DB
}

// CheckCustomerUnit returns hasBooking=false (not an error) when the customer
// exists but has no allotted unit, the allotted unit no longer resolves, or
// the customer already completed a transfer of that unit.
func (s *Service) CheckCustomerUnit(ctx context.Context, customerID uuid.UUID) (domain.Eligibility, error) {
	out := domain.Eligibility{CustomerID: customerID}

	var customer domain.Customer
	if err := s.DB.WithContext(ctx).Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, domain.NotFound("customer", customerID.String())
		}
		return out, err
	}
	if customer.AllottedUnitID == nil {
		return out, nil
	}

	var unit domain.Unit
	if err := s.DB.WithContext(ctx).Where("unit_id = ?", *customer.AllottedUnitID).First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return out, err
	}

	var done int64
	if err := s.DB.WithContext(ctx).Model(&domain.TransferTransaction{}).
		Where("customer_id = ? AND unit_id = ? AND status = ?", customerID, unit.UnitID, domain.TransferConsumed).
		Count(&done).Error; err != nil {
		return out, err
	}
	if done > 0 {
		return out, nil
	}

	out.HasBooking = true
	out.UnitID = &unit.UnitID
	out.UnitName = &unit.Name
	out.ProjectID = &unit.ProjectID
	return out, nil
}
