package owners

import (
	ownersvc "propsales-backend/internal/application/owners"
	"propsales-backend/internal/domain"
	"propsales-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *ownersvc.Service
}

// GET /api/v1/owners/unit/:unitId
func (h *Handlers) UnitOwners(c *fiber.Ctx) error {
	unitID, err := uuid.Parse(c.Params("unitId"))
	if err != nil {
		return response.DomainError(c, domain.Validation("unit_id", "unit_id must be a valid id"))
	}
	owners, err := h.Service.FetchUnitOwners(c.UserContext(), unitID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Unit owners fetched successfully", owners)
}

// GET /api/v1/transfer-charges/transaction/:id
func (h *Handlers) TransferDetail(c *fiber.Ctx) error {
	transferID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.DomainError(c, domain.Validation("transfer_id", "transfer_id must be a valid id"))
	}
	detail, err := h.Service.FetchTransferByID(c.UserContext(), transferID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Transfer fetched successfully", detail)
}
