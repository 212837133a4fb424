package transfers

import (
	"context"
	"errors"
	"time"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists transfer records and owner history.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Create(ctx context.Context, t *domain.TransferTransaction) error {
	return s.DB.WithContext(ctx).Create(t).Error
}

func (s *GormStore) Get(ctx context.Context, transferID uuid.UUID) (*domain.TransferTransaction, error) {
	var t domain.TransferTransaction
	if err := s.DB.WithContext(ctx).Where("transfer_id = ?", transferID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("transfer", transferID.String())
		}
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.TransferTransaction, error) {
	var out []domain.TransferTransaction
	if err := s.DB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]domain.TransferTransaction, error) {
	var out []domain.TransferTransaction
	if err := s.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record that never got a charge linked. Used to roll back a
// failed consumption and by the reconciliation "void" action.
func (s *GormStore) Delete(ctx context.Context, transferID uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("transfer_id = ? AND charge_id IS NULL AND status IN ?", transferID,
			[]domain.TransferStatus{domain.TransferRecorded, domain.TransferOrphaned}).
		Delete(&domain.TransferTransaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("unconsumed transfer", transferID.String())
	}
	return nil
}

func (s *GormStore) MarkOrphaned(ctx context.Context, transferID uuid.UUID) error {
	return s.DB.WithContext(ctx).
		Model(&domain.TransferTransaction{}).
		Where("transfer_id = ? AND status = ?", transferID, domain.TransferRecorded).
		Update("status", domain.TransferOrphaned).Error
}

// MarkStaleOrphaned flags RECORDED rows created before cutoff.
func (s *GormStore) MarkStaleOrphaned(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&domain.TransferTransaction{}).
		Where("status = ? AND created_at < ?", domain.TransferRecorded, cutoff).
		Update("status", domain.TransferOrphaned)
	return res.RowsAffected, res.Error
}

// Finalize marks the transfer CONSUMED with its charge and appends the
// outgoing owner to the unit's history, atomically.
func (s *GormStore) Finalize(ctx context.Context, transferID, chargeID uuid.UUID, effective time.Time) (*domain.TransferTransaction, error) {
	var out domain.TransferTransaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transfer_id = ?", transferID).First(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("transfer", transferID.String())
			}
			return err
		}
		if out.Status == domain.TransferConsumed {
			return nil
		}

		res := tx.Model(&domain.TransferTransaction{}).
			Where("transfer_id = ? AND status IN ?", transferID,
				[]domain.TransferStatus{domain.TransferRecorded, domain.TransferOrphaned}).
			Updates(map[string]interface{}{
				"status":    domain.TransferConsumed,
				"charge_id": chargeID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("transfer changed state during finalize")
		}

		var customer domain.Customer
		if err := tx.Where("customer_id = ?", out.CustomerID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("customer", out.CustomerID.String())
			}
			return err
		}

		// Serialize owner_number allocation per unit.
		var unit domain.Unit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("unit_id = ?", out.UnitID).
			Find(&unit).Error; err != nil {
			return err
		}

		var last struct{ Max int }
		if err := tx.Model(&domain.OwnerHistoryEntry{}).
			Select("COALESCE(MAX(owner_number), 0) AS max").
			Where("unit_id = ?", out.UnitID).
			Scan(&last).Error; err != nil {
			return err
		}

		entry := domain.OwnerHistoryEntry{
			UnitID:        out.UnitID,
			OwnerNumber:   last.Max + 1,
			CustomerID:    customer.CustomerID,
			TransferID:    out.TransferID,
			Name:          customer.Name,
			Phone:         customer.Phone,
			Address:       customer.Address,
			EffectiveDate: effective,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		out.Status = domain.TransferConsumed
		out.ChargeID = &chargeID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) UpdateRemarks(ctx context.Context, transferID uuid.UUID, remarks *string) (*domain.TransferTransaction, error) {
	res := s.DB.WithContext(ctx).
		Model(&domain.TransferTransaction{}).
		Where("transfer_id = ?", transferID).
		Update("remarks", remarks)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("transfer", transferID.String())
	}
	return s.Get(ctx, transferID)
}

func (s *GormStore) MarkVerified(ctx context.Context, transferID uuid.UUID, at time.Time) (*domain.TransferTransaction, error) {
	if err := s.DB.WithContext(ctx).
		Model(&domain.TransferTransaction{}).
		Where("transfer_id = ? AND status = ?", transferID, domain.TransferConsumed).
		Updates(map[string]interface{}{
			"is_verified": true,
			"verified_at": at,
		}).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, transferID)
}
