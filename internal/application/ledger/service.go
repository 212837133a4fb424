package ledger

import (
	"context"
	"errors"
	"time"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// consumeAttempts bounds how often consumption re-reads the oldest pending
// entry after losing a compare-and-set to a concurrent consumer.
const consumeAttempts = 3

// Service is the transfer-charge ledger.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RecordCharge adds a PENDING entry. Called by the payment-entry flow.
func (s *Service) RecordCharge(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*domain.TransferChargePayment, error) {
	if !amount.IsPositive() {
		return nil, domain.Validation("amount", "amount must be greater than zero")
	}
	var customer domain.Customer
	if err := s.DB.WithContext(ctx).Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("customer", customerID.String())
		}
		return nil, err
	}
	entry := &domain.TransferChargePayment{
		CustomerID: customerID,
		Amount:     amount,
		Status:     domain.ChargePending,
		CreatedAt:  s.now(),
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// CheckTransferCharge counts the customer's PENDING entries.
func (s *Service) CheckTransferCharge(ctx context.Context, customerID uuid.UUID) (domain.ChargeCheck, error) {
	var count int64
	if err := s.DB.WithContext(ctx).
		Model(&domain.TransferChargePayment{}).
		Where("customer_id = ? AND status = ?", customerID, domain.ChargePending).
		Count(&count).Error; err != nil {
		return domain.ChargeCheck{CustomerID: customerID}, err
	}
	return domain.ChargeCheck{
		CustomerID:        customerID,
		HasTransferCharge: count > 0,
		PendingCount:      int(count),
	}, nil
}

// MarkConsumed consumes the customer's oldest PENDING entry without tying it to
// a transfer.
func (s *Service) MarkConsumed(ctx context.Context, customerID uuid.UUID) (*domain.TransferChargePayment, error) {
	return s.consumeOldest(ctx, customerID, nil)
}

// ConsumeForTransfer consumes the customer's oldest PENDING entry and links it
// to transferID in the same update.
func (s *Service) ConsumeForTransfer(ctx context.Context, customerID, transferID uuid.UUID) (*domain.TransferChargePayment, error) {
	return s.consumeOldest(ctx, customerID, &transferID)
}

func (s *Service) consumeOldest(ctx context.Context, customerID uuid.UUID, transferID *uuid.UUID) (*domain.TransferChargePayment, error) {
	for attempt := 0; attempt < consumeAttempts; attempt++ {
		var oldest domain.TransferChargePayment
		err := s.DB.WithContext(ctx).
			Where("customer_id = ? AND status = ?", customerID, domain.ChargePending).
			Order("created_at ASC").
			Order("charge_id ASC").
			First(&oldest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NoPendingCharge(customerID.String())
		}
		if err != nil {
			return nil, err
		}

		entry, err := s.ConsumeEntry(ctx, oldest.ChargeID, transferID)
		if errors.Is(err, domain.ErrNoPendingCharge) {
			continue
		}
		return entry, err
	}
	return nil, domain.NoPendingCharge(customerID.String())
}

// ConsumeEntry flips one specific entry PENDING -> CONSUMED. The update is
// guarded on the current status so two consumers can never both succeed.
func (s *Service) ConsumeEntry(ctx context.Context, chargeID uuid.UUID, transferID *uuid.UUID) (*domain.TransferChargePayment, error) {
	now := s.now()
	res := s.DB.WithContext(ctx).
		Model(&domain.TransferChargePayment{}).
		Where("charge_id = ? AND status = ?", chargeID, domain.ChargePending).
		Updates(map[string]interface{}{
			"status":      domain.ChargeConsumed,
			"transfer_id": transferID,
			"consumed_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &domain.Error{Kind: domain.ErrNoPendingCharge, Reason: "transfer charge " + chargeID.String() + " is not pending"}
	}
	return s.Get(ctx, chargeID)
}

// LinkPreConsumed attaches a transfer to an entry that was consumed by the
// standalone mark-used step. Fails if the entry is already linked.
func (s *Service) LinkPreConsumed(ctx context.Context, chargeID, transferID uuid.UUID) (*domain.TransferChargePayment, error) {
	res := s.DB.WithContext(ctx).
		Model(&domain.TransferChargePayment{}).
		Where("charge_id = ? AND status = ? AND transfer_id IS NULL", chargeID, domain.ChargeConsumed).
		Updates(map[string]interface{}{
			"transfer_id": transferID,
			"updated_at":  s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &domain.Error{Kind: domain.ErrNoPendingCharge, Reason: "transfer charge " + chargeID.String() + " is already used by another transfer"}
	}
	return s.Get(ctx, chargeID)
}

// Get loads one entry.
func (s *Service) Get(ctx context.Context, chargeID uuid.UUID) (*domain.TransferChargePayment, error) {
	var entry domain.TransferChargePayment
	if err := s.DB.WithContext(ctx).Where("charge_id = ?", chargeID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("transfer charge", chargeID.String())
		}
		return nil, err
	}
	return &entry, nil
}

// FindByTransfer returns the entry consumed for transferID, or NotFound.
func (s *Service) FindByTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferChargePayment, error) {
	var entry domain.TransferChargePayment
	if err := s.DB.WithContext(ctx).
		Where("transfer_id = ? AND status = ?", transferID, domain.ChargeConsumed).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("charge for transfer", transferID.String())
		}
		return nil, err
	}
	return &entry, nil
}
