package reconciliation

import (
	"encoding/json"

	reconsvc "propsales-backend/internal/application/reconciliation"
	"propsales-backend/internal/domain"
	"propsales-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reconsvc.Service
}

// GET /api/v1/unit-transfer/reconciliation
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.ListPending(c.UserContext())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Pending transfers fetched successfully", list)
}

// POST /api/v1/unit-transfer/reconciliation/scan runs one pass on demand.
func (h *Handlers) Scan(c *fiber.Ctx) error {
	report, err := h.Service.Scan(c.UserContext())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Reconciliation pass complete", report)
}

// POST /api/v1/unit-transfer/reconciliation/:id/resolve with {"action": "consume"|"void"}
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	transferID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.DomainError(c, domain.Validation("transfer_id", "transfer_id must be a valid id"))
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, "VALIDATION")
	}
	t, err := h.Service.Resolve(c.UserContext(), transferID, reconsvc.Action(body.Action))
	if err != nil {
		return response.DomainError(c, err)
	}
	if t == nil {
		return response.Success(c, "Transfer voided", fiber.Map{"transfer_id": transferID})
	}
	return response.Success(c, "Transfer completed", t)
}
