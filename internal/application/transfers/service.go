package transfers

import (
	"context"
	"errors"
	"time"

	"propsales-backend/internal/domain"
	"propsales-backend/internal/pkg/metrics"
	"propsales-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// EligibilityChecker resolves whether a customer holds a transferable unit.
type EligibilityChecker interface {
	CheckCustomerUnit(ctx context.Context, customerID uuid.UUID) (domain.Eligibility, error)
}

// ChargeLedger is the transfer-charge ledger.
type ChargeLedger interface {
	CheckTransferCharge(ctx context.Context, customerID uuid.UUID) (domain.ChargeCheck, error)
	MarkConsumed(ctx context.Context, customerID uuid.UUID) (*domain.TransferChargePayment, error)
	ConsumeForTransfer(ctx context.Context, customerID, transferID uuid.UUID) (*domain.TransferChargePayment, error)
	ConsumeEntry(ctx context.Context, chargeID uuid.UUID, transferID *uuid.UUID) (*domain.TransferChargePayment, error)
	LinkPreConsumed(ctx context.Context, chargeID, transferID uuid.UUID) (*domain.TransferChargePayment, error)
	Get(ctx context.Context, chargeID uuid.UUID) (*domain.TransferChargePayment, error)
}

// Store persists transfer records.
type Store interface {
	Create(ctx context.Context, t *domain.TransferTransaction) error
	Get(ctx context.Context, transferID uuid.UUID) (*domain.TransferTransaction, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.TransferTransaction, error)
	Delete(ctx context.Context, transferID uuid.UUID) error
	MarkOrphaned(ctx context.Context, transferID uuid.UUID) error
	Finalize(ctx context.Context, transferID, chargeID uuid.UUID, effective time.Time) (*domain.TransferTransaction, error)
	UpdateRemarks(ctx context.Context, transferID uuid.UUID, remarks *string) (*domain.TransferTransaction, error)
	MarkVerified(ctx context.Context, transferID uuid.UUID, at time.Time) (*domain.TransferTransaction, error)
}

// Service drives a transfer attempt through its gates.
type Service struct {
	Eligibility EligibilityChecker
	Ledger      ChargeLedger
	Store       Store
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Snapshot holds the two independent reads a transfer is gated on.
type Snapshot struct {
	Eligibility domain.Eligibility `json:"eligibility"`
	Charge      domain.ChargeCheck `json:"charge"`
}

// UnitDetails optionally pins the unit the caller believes is being transferred.
type UnitDetails struct {
	UnitID    *uuid.UUID
	ProjectID *uuid.UUID
}

// CreateInput is everything the transfer form submits.
type CreateInput struct {
	CustomerID uuid.UUID
	Unit       UnitDetails
	NewOwner   domain.NewOwner
	BrokerID   *uuid.UUID
	Charge     domain.TransferCharge
	Evidence   domain.PaymentEvidence
	// EvidenceForm is the submitted mode + details blocks. It is resolved at
	// the evidence gate when Evidence is nil.
	EvidenceForm *domain.EvidenceView
	// ChargeID selects a specific ledger entry: a PENDING one is consumed, one
	// already consumed by mark-used (and not linked) is accepted as is.
	ChargeID *uuid.UUID
}

// Precheck runs the eligibility and charge reads in parallel. When both fail
// the eligibility error wins.
func (s *Service) Precheck(ctx context.Context, customerID uuid.UUID) (Snapshot, error) {
	snap := Snapshot{}
	var eligErr, chargeErr error

	var g errgroup.Group
	g.Go(func() error {
		snap.Eligibility, eligErr = s.Eligibility.CheckCustomerUnit(ctx, customerID)
		return nil
	})
	g.Go(func() error {
		snap.Charge, chargeErr = s.Ledger.CheckTransferCharge(ctx, customerID)
		return nil
	})
	_ = g.Wait()

	if eligErr != nil {
		return snap, eligErr
	}
	if chargeErr != nil {
		return snap, chargeErr
	}
	return snap, nil
}

// CreateTransfer reads a fresh snapshot and runs the transfer against it.
func (s *Service) CreateTransfer(ctx context.Context, in CreateInput) (*domain.TransferTransaction, error) {
	a := newAttempt("create_transfer", in.CustomerID)
	snap, err := s.Precheck(ctx, in.CustomerID)
	if err != nil {
		return nil, s.rejected(a, err)
	}
	return s.createFrom(ctx, a, snap, in)
}

// CreateFromSnapshot runs the transfer against a snapshot the caller already
// holds. The charge is still consumed with a guarded update, so a stale
// snapshot can cost a rejection but never a double consumption.
func (s *Service) CreateFromSnapshot(ctx context.Context, snap Snapshot, in CreateInput) (*domain.TransferTransaction, error) {
	return s.createFrom(ctx, newAttempt("create_transfer", in.CustomerID), snap, in)
}

type consumeMode int

const (
	consumeOldest consumeMode = iota
	consumeByID
	linkPreConsumed
)

func (s *Service) createFrom(ctx context.Context, a *attempt, snap Snapshot, in CreateInput) (*domain.TransferTransaction, error) {
	// 1. eligibility
	if snap.Eligibility.CustomerID != in.CustomerID || !snap.Eligibility.HasBooking || snap.Eligibility.UnitID == nil {
		return nil, s.rejected(a, domain.Ineligible(in.CustomerID.String()))
	}
	a.advance(StateEligibleChecked)

	// 2. charge
	mode, err := s.resolveCharge(ctx, snap, in)
	if err != nil {
		return nil, s.rejected(a, err)
	}
	a.advance(StateChargeVerified)

	// 3. amount
	if !in.Charge.Amount.IsPositive() {
		return nil, s.rejected(a, domain.Validation("amount", "amount must be greater than zero"))
	}

	// 4. evidence shape, then the rest of the form
	evidence := in.Evidence
	if evidence == nil && in.EvidenceForm != nil {
		if evidence, err = in.EvidenceForm.Evidence(); err != nil {
			return nil, s.rejected(a, err)
		}
	}
	if err := validateEvidence(evidence); err != nil {
		return nil, s.rejected(a, err)
	}
	if err := validation.Struct(in.NewOwner, "new_owner"); err != nil {
		return nil, s.rejected(a, err)
	}
	if in.Unit.UnitID != nil && *in.Unit.UnitID != *snap.Eligibility.UnitID {
		return nil, s.rejected(a, domain.Validation("unit_id", "unit_id does not match the customer's allotted unit"))
	}
	if in.Unit.ProjectID != nil && snap.Eligibility.ProjectID != nil && *in.Unit.ProjectID != *snap.Eligibility.ProjectID {
		return nil, s.rejected(a, domain.Validation("project_id", "project_id does not match the customer's allotted unit"))
	}

	// 5. persist, unverified
	t := &domain.TransferTransaction{
		TransferID: uuid.New(),
		CustomerID: in.CustomerID,
		UnitID:     *snap.Eligibility.UnitID,
		ProjectID:  snap.Eligibility.ProjectID,
		NewOwner:   in.NewOwner,
		BrokerID:   in.BrokerID,
		Charge:     in.Charge,
		Status:     domain.TransferRecorded,
		CreatedAt:  s.now(),
	}
	if err := t.SetEvidence(evidence); err != nil {
		return nil, s.rejected(a, domain.Validation("mode", err.Error()))
	}
	if err := s.Store.Create(ctx, t); err != nil {
		return nil, s.rejected(a, err)
	}
	a.advance(StateRecorded)

	// 6. consume
	var entry *domain.TransferChargePayment
	switch mode {
	case consumeByID:
		entry, err = s.Ledger.ConsumeEntry(ctx, *in.ChargeID, &t.TransferID)
	case linkPreConsumed:
		entry, err = s.Ledger.LinkPreConsumed(ctx, *in.ChargeID, t.TransferID)
	default:
		entry, err = s.Ledger.ConsumeForTransfer(ctx, in.CustomerID, t.TransferID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingCharge) {
			if delErr := s.Store.Delete(context.WithoutCancel(ctx), t.TransferID); delErr != nil {
				return s.orphan(ctx, t, errors.Join(err, delErr))
			}
			return nil, s.rejected(a, err)
		}
		return s.orphan(ctx, t, err)
	}
	if mode != linkPreConsumed {
		s.Metrics.IncConsumed()
	}

	done, err := s.Store.Finalize(ctx, t.TransferID, entry.ChargeID, s.now())
	if err != nil {
		return s.orphan(ctx, t, err)
	}
	a.advance(StateConsumed)
	s.Metrics.IncCreated()
	log.Info().
		Str("transfer_id", done.TransferID.String()).
		Str("customer_id", done.CustomerID.String()).
		Str("charge_id", entry.ChargeID.String()).
		Msg("unit transfer recorded")

	// 7.
	return done, nil
}

func (s *Service) resolveCharge(ctx context.Context, snap Snapshot, in CreateInput) (consumeMode, error) {
	if in.ChargeID == nil {
		if snap.Charge.CustomerID != in.CustomerID || !snap.Charge.HasTransferCharge {
			return consumeOldest, domain.NoPendingCharge(in.CustomerID.String())
		}
		return consumeOldest, nil
	}

	entry, err := s.Ledger.Get(ctx, *in.ChargeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return consumeOldest, domain.NoPendingCharge(in.CustomerID.String())
		}
		return consumeOldest, err
	}
	if entry.CustomerID != in.CustomerID {
		return consumeOldest, domain.NoPendingCharge(in.CustomerID.String())
	}
	switch {
	case entry.Status == domain.ChargePending:
		return consumeByID, nil
	case entry.PreConsumed():
		return linkPreConsumed, nil
	}
	return consumeOldest, &domain.Error{
		Kind:   domain.ErrNoPendingCharge,
		Reason: "transfer charge " + entry.ChargeID.String() + " is already used by another transfer",
	}
}

// orphan flags t for manual reconciliation. It never retries consumption.
func (s *Service) orphan(ctx context.Context, t *domain.TransferTransaction, cause error) (*domain.TransferTransaction, error) {
	if err := s.Store.MarkOrphaned(context.WithoutCancel(ctx), t.TransferID); err != nil {
		log.Error().Err(err).Str("transfer_id", t.TransferID.String()).Msg("failed to flag transfer as orphaned")
	} else {
		t.Status = domain.TransferOrphaned
	}
	s.Metrics.IncOrphaned()
	log.Error().
		Err(cause).
		Str("transfer_id", t.TransferID.String()).
		Str("customer_id", t.CustomerID.String()).
		Msg("transfer orphaned: charge consumption unconfirmed")
	return t, domain.Orphaned(t.TransferID.String(), cause)
}

func (s *Service) rejected(a *attempt, err error) error {
	s.Metrics.IncRejected(domain.ReasonCode(err))
	return a.reject(err)
}

func validateEvidence(e domain.PaymentEvidence) error {
	switch ev := e.(type) {
	case domain.OnlineEvidence:
		return validation.Struct(ev, "online_details")
	case *domain.OnlineEvidence:
		return validation.Struct(ev, "online_details")
	case domain.ChequeEvidence:
		return validation.Struct(ev, "cheque_details")
	case *domain.ChequeEvidence:
		return validation.Struct(ev, "cheque_details")
	case nil:
		return domain.Validation("mode", "payment evidence is required")
	}
	return domain.Validation("mode", "unsupported payment evidence")
}

// MarkTransferChargeUsed is the standalone pre-check step: it gates on
// eligibility and a pending charge, then consumes one charge without recording
// a transfer. The returned entry id can be passed to CreateTransfer.
func (s *Service) MarkTransferChargeUsed(ctx context.Context, customerID uuid.UUID) (*domain.TransferChargePayment, error) {
	a := newAttempt("mark_transfer_charge_used", customerID)
	snap, err := s.Precheck(ctx, customerID)
	if err != nil {
		return nil, s.rejected(a, err)
	}
	if !snap.Eligibility.HasBooking {
		return nil, s.rejected(a, domain.Ineligible(customerID.String()))
	}
	a.advance(StateEligibleChecked)
	if !snap.Charge.HasTransferCharge {
		return nil, s.rejected(a, domain.NoPendingCharge(customerID.String()))
	}
	a.advance(StateChargeVerified)

	entry, err := s.Ledger.MarkConsumed(ctx, customerID)
	if err != nil {
		return nil, s.rejected(a, err)
	}
	a.advance(StateConsumed)
	s.Metrics.IncConsumed()
	log.Info().
		Str("customer_id", customerID.String()).
		Str("charge_id", entry.ChargeID.String()).
		Msg("transfer charge marked used without transfer")
	return entry, nil
}

func (s *Service) GetTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferTransaction, error) {
	return s.Store.Get(ctx, transferID)
}

func (s *Service) ListTransfers(ctx context.Context, customerID uuid.UUID) ([]domain.TransferTransaction, error) {
	return s.Store.ListByCustomer(ctx, customerID)
}

// VerifyTransfer marks a completed transfer's payment evidence as checked.
func (s *Service) VerifyTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferTransaction, error) {
	t, err := s.Store.Get(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TransferConsumed {
		return nil, domain.Validation("status", "only completed transfers can be verified")
	}
	if t.IsVerified {
		return t, nil
	}
	return s.Store.MarkVerified(ctx, transferID, s.now())
}
