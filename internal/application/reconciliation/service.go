package reconciliation

import (
	"context"
	"errors"
	"time"

	"propsales-backend/internal/application/alerts"
	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const defaultStaleAfter = 30 * time.Minute

// Store is the slice of the transfer store reconciliation needs.
type Store interface {
	Get(ctx context.Context, transferID uuid.UUID) (*domain.TransferTransaction, error)
	ListByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]domain.TransferTransaction, error)
	MarkStaleOrphaned(ctx context.Context, cutoff time.Time) (int64, error)
	Finalize(ctx context.Context, transferID, chargeID uuid.UUID, effective time.Time) (*domain.TransferTransaction, error)
	Delete(ctx context.Context, transferID uuid.UUID) error
}

// Ledger is the slice of the charge ledger reconciliation needs.
type Ledger interface {
	FindByTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferChargePayment, error)
	ConsumeForTransfer(ctx context.Context, customerID, transferID uuid.UUID) (*domain.TransferChargePayment, error)
}

type Action string

const (
	ActionConsume Action = "consume"
	ActionVoid    Action = "void"
)

// Service resolves transfers stuck between recording and charge consumption.
// The scan only completes transfers whose charge is provably consumed for
// them; consuming a charge is always an operator decision via Resolve.
type Service struct {
	Store      Store
	Ledger     Ledger
	Notifier   alerts.Notifier
	StaleAfter time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ScanReport summarises one reconciliation pass.
type ScanReport struct {
	MarkedStale int64                        `json:"marked_stale"`
	Finalized   []uuid.UUID                  `json:"finalized"`
	Outstanding []domain.TransferTransaction `json:"outstanding"`
}

// Scan flags abandoned RECORDED transfers, completes orphans whose charge was
// in fact consumed for them, and reports the rest.
func (s *Service) Scan(ctx context.Context) (ScanReport, error) {
	report := ScanReport{Finalized: []uuid.UUID{}, Outstanding: []domain.TransferTransaction{}}

	staleAfter := s.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	n, err := s.Store.MarkStaleOrphaned(ctx, s.now().Add(-staleAfter))
	if err != nil {
		return report, err
	}
	report.MarkedStale = n

	orphans, err := s.Store.ListByStatus(ctx, domain.TransferOrphaned)
	if err != nil {
		return report, err
	}
	for _, t := range orphans {
		entry, err := s.Ledger.FindByTransfer(ctx, t.TransferID)
		if errors.Is(err, domain.ErrNotFound) {
			report.Outstanding = append(report.Outstanding, t)
			continue
		}
		if err != nil {
			return report, err
		}
		if _, err := s.Store.Finalize(ctx, t.TransferID, entry.ChargeID, s.effectiveDate(entry)); err != nil {
			log.Error().Err(err).Str("transfer_id", t.TransferID.String()).Msg("reconciliation finalize failed")
			report.Outstanding = append(report.Outstanding, t)
			continue
		}
		report.Finalized = append(report.Finalized, t.TransferID)
	}

	if len(report.Outstanding) > 0 && s.Notifier != nil {
		if err := s.Notifier.NotifyOrphaned(ctx, report.Outstanding); err != nil {
			log.Warn().Err(err).Msg("orphaned transfer alert not sent")
		}
	}
	log.Info().
		Int64("marked_stale", report.MarkedStale).
		Int("finalized", len(report.Finalized)).
		Int("outstanding", len(report.Outstanding)).
		Msg("transfer reconciliation pass complete")
	return report, nil
}

func (s *Service) effectiveDate(entry *domain.TransferChargePayment) time.Time {
	if entry.ConsumedAt != nil {
		return *entry.ConsumedAt
	}
	return s.now()
}

// ListPending returns transfers not yet completed.
func (s *Service) ListPending(ctx context.Context) ([]domain.TransferTransaction, error) {
	return s.Store.ListByStatus(ctx, domain.TransferRecorded, domain.TransferOrphaned)
}

// Resolve applies an operator decision to an orphaned transfer. If a charge is
// already linked to it the transfer is completed whatever the action.
func (s *Service) Resolve(ctx context.Context, transferID uuid.UUID, action Action) (*domain.TransferTransaction, error) {
	if action != ActionConsume && action != ActionVoid {
		return nil, domain.Validation("action", "action must be consume or void")
	}
	t, err := s.Store.Get(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TransferOrphaned {
		return nil, domain.Validation("status", "only orphaned transfers can be reconciled")
	}

	entry, err := s.Ledger.FindByTransfer(ctx, transferID)
	switch {
	case err == nil:
		return s.Store.Finalize(ctx, transferID, entry.ChargeID, s.effectiveDate(entry))
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if action == ActionVoid {
		if err := s.Store.Delete(ctx, transferID); err != nil {
			return nil, err
		}
		log.Info().Str("transfer_id", transferID.String()).Msg("orphaned transfer voided")
		return nil, nil
	}

	entry, err = s.Ledger.ConsumeForTransfer(ctx, t.CustomerID, transferID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("transfer_id", transferID.String()).
		Str("charge_id", entry.ChargeID.String()).
		Msg("orphaned transfer resolved by operator consumption")
	return s.Store.Finalize(ctx, transferID, entry.ChargeID, s.effectiveDate(entry))
}

// Schedule registers Scan on c. Each run gets its own timeout.
func (s *Service) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := s.Scan(ctx); err != nil {
			log.Error().Err(err).Msg("transfer reconciliation pass failed")
		}
	})
}
