package charges

import (
	"encoding/json"

	ledgersvc "propsales-backend/internal/application/ledger"
	"propsales-backend/internal/domain"
	"propsales-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Ledger *ledgersvc.Service
}

type recordChargeRequest struct {
	CustomerID string              `json:"customer_id"`
	Amount     decimal.NullDecimal `json:"amount"`
}

// POST /api/v1/transfer-charges records a paid transfer charge as PENDING.
func (h *Handlers) Record(c *fiber.Ctx) error {
	var req recordChargeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, "VALIDATION")
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return response.DomainError(c, domain.Validation("customer_id", "customer_id must be a valid id"))
	}
	if !req.Amount.Valid {
		return response.DomainError(c, domain.Validation("amount", "amount is required"))
	}
	entry, err := h.Ledger.RecordCharge(c.UserContext(), customerID, req.Amount.Decimal)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Transfer charge recorded successfully", entry)
}
