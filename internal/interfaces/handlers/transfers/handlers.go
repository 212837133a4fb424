package transfers

import (
	"context"
	"encoding/json"
	"errors"

	transfersvc "propsales-backend/internal/application/transfers"
	"propsales-backend/internal/domain"
	"propsales-backend/internal/infrastructure/cache"
	"propsales-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

type Handlers struct {
	Service     *transfersvc.Service
	Idempotency *cache.IdempotencyStore
}

type recordRequest struct {
	CustomerID    string                 `json:"customer_id"`
	ProjectID     *string                `json:"project_id"`
	UnitID        *string                `json:"unit_id"`
	Amount        decimal.NullDecimal    `json:"amount"`
	Date          string                 `json:"date"`
	Remarks       *string                `json:"remarks"`
	Mode          string                 `json:"mode"`
	OnlineDetails *domain.OnlineEvidence `json:"online_details"`
	ChequeDetails *domain.ChequeEvidence `json:"cheque_details"`
	NewOwner      *domain.NewOwner       `json:"new_owner"`
	BrokerID      *string                `json:"broker_id"`
	ChargeID      *string                `json:"charge_id"`
}

// GET /api/v1/unit-transfer/customer/:id
func (h *Handlers) CheckEligibility(c *fiber.Ctx) error {
	customerID, err := pathUUID(c, "id", "customer_id")
	if err != nil {
		return response.DomainError(c, err)
	}
	elig, err := h.Service.Eligibility.CheckCustomerUnit(c.UserContext(), customerID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Eligibility fetched successfully", elig)
}

// GET /api/v1/is-pay-transfer-charge/:id
func (h *Handlers) CheckTransferCharge(c *fiber.Ctx) error {
	customerID, err := pathUUID(c, "id", "customer_id")
	if err != nil {
		return response.DomainError(c, err)
	}
	check, err := h.Service.Ledger.CheckTransferCharge(c.UserContext(), customerID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfer charge status fetched successfully", check)
}

// PATCH /api/v1/unit-transfer/mark-used/:id
func (h *Handlers) MarkUsed(c *fiber.Ctx) error {
	customerID, err := pathUUID(c, "id", "customer_id")
	if err != nil {
		return response.DomainError(c, err)
	}
	entry, err := h.Service.MarkTransferChargeUsed(c.UserContext(), customerID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfer charge marked as used", entry)
}

// POST /api/v1/unit-transfer/record. An Idempotency-Key is reserved before the
// transfer runs: a replay returns the transfer the key produced and a request
// racing an unfinished one gets 409.
func (h *Handlers) Record(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req recordRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, "VALIDATION")
	}
	in, err := req.input()
	if err != nil {
		return response.DomainError(c, err)
	}

	key := c.Get(idempotencyHeader)
	if key != "" {
		done, err := h.reserve(c, key)
		if done || err != nil {
			return err
		}
	}

	t, err := h.Service.CreateTransfer(ctx, in)
	if key != "" {
		h.settle(ctx, key, t)
	}
	if errors.Is(err, domain.ErrOrphanedTransfer) {
		return response.Warning(c, err, t)
	}
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Transfer recorded successfully", t)
}

// reserve claims key for this request. The bool reports that a response has
// already been written. A redis failure degrades to running without the key.
func (h *Handlers) reserve(c *fiber.Ctx, key string) (bool, error) {
	ctx := c.UserContext()
	for attempt := 0; attempt < 2; attempt++ {
		state, id, err := h.Idempotency.Reserve(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("idempotency reserve failed")
			return false, nil
		}
		switch state {
		case cache.Reserved:
			return false, nil
		case cache.InFlight:
			return true, response.Error(c, "A request with this Idempotency-Key is still in progress", fiber.StatusConflict, "IN_PROGRESS")
		}

		t, err := h.Service.GetTransfer(ctx, id)
		if err == nil {
			return true, replay(c, t)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return true, response.DomainError(c, err)
		}
		// bound to a transfer that no longer exists
		if rerr := h.Idempotency.Release(ctx, key); rerr != nil {
			log.Warn().Err(rerr).Msg("idempotency release failed")
			return false, nil
		}
	}
	return true, response.Error(c, "A request with this Idempotency-Key is still in progress", fiber.StatusConflict, "IN_PROGRESS")
}

// settle binds key to the transfer, or frees it when nothing was written.
func (h *Handlers) settle(ctx context.Context, key string, t *domain.TransferTransaction) {
	if t == nil {
		if err := h.Idempotency.Release(ctx, key); err != nil {
			log.Warn().Err(err).Msg("idempotency release failed")
		}
		return
	}
	if err := h.Idempotency.Complete(ctx, key, t.TransferID); err != nil {
		log.Warn().Err(err).Str("transfer_id", t.TransferID.String()).Msg("idempotency save failed")
	}
}

func replay(c *fiber.Ctx, t *domain.TransferTransaction) error {
	if t.Status == domain.TransferOrphaned {
		return response.Warning(c, domain.Orphaned(t.TransferID.String(), nil), t)
	}
	return response.Success(c, "Transfer already recorded", t)
}

func (r recordRequest) input() (transfersvc.CreateInput, error) {
	in := transfersvc.CreateInput{
		EvidenceForm: &domain.EvidenceView{
			Mode:          domain.PaymentMode(r.Mode),
			OnlineDetails: r.OnlineDetails,
			ChequeDetails: r.ChequeDetails,
		},
		Charge: domain.TransferCharge{
			Amount:  r.Amount.Decimal,
			Date:    r.Date,
			Remarks: r.Remarks,
		},
	}
	if r.NewOwner != nil {
		in.NewOwner = *r.NewOwner
	}

	var err error
	if in.CustomerID, err = uuid.Parse(r.CustomerID); err != nil {
		return in, domain.Validation("customer_id", "customer_id must be a valid id")
	}
	if in.Unit.UnitID, err = optionalUUID(r.UnitID, "unit_id"); err != nil {
		return in, err
	}
	if in.Unit.ProjectID, err = optionalUUID(r.ProjectID, "project_id"); err != nil {
		return in, err
	}
	if in.BrokerID, err = optionalUUID(r.BrokerID, "broker_id"); err != nil {
		return in, err
	}
	if in.ChargeID, err = optionalUUID(r.ChargeID, "charge_id"); err != nil {
		return in, err
	}
	return in, nil
}

// PATCH /api/v1/unit-transfer/record/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	transferID, err := pathUUID(c, "id", "transfer_id")
	if err != nil {
		return response.DomainError(c, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, "VALIDATION")
	}
	t, err := h.Service.UpdateTransfer(c.UserContext(), transferID, fields)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfer updated successfully", t)
}

// PATCH /api/v1/unit-transfer/record/:id/verify
func (h *Handlers) Verify(c *fiber.Ctx) error {
	transferID, err := pathUUID(c, "id", "transfer_id")
	if err != nil {
		return response.DomainError(c, err)
	}
	t, err := h.Service.VerifyTransfer(c.UserContext(), transferID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfer verified successfully", t)
}

// GET /api/v1/unit-transfer/records?customer_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		return response.DomainError(c, domain.Validation("customer_id", "customer_id query parameter must be a valid id"))
	}
	list, err := h.Service.ListTransfers(c.UserContext(), customerID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfers fetched successfully", list)
}

func pathUUID(c *fiber.Ctx, param, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, domain.Validation(field, field+" must be a valid id")
	}
	return id, nil
}

func optionalUUID(s *string, field string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, domain.Validation(field, field+" must be a valid id")
	}
	return &id, nil
}
