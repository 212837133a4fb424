package transfers

import (
	"context"
	"encoding/json"
	"sort"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
)

// authoritativeFields cannot change once a transfer is recorded.
var authoritativeFields = map[string]bool{
	"transfer_id":      true,
	"customer_id":      true,
	"unit_id":          true,
	"project_id":       true,
	"amount":           true,
	"date":             true,
	"mode":             true,
	"payment_evidence": true,
	"online_details":   true,
	"cheque_details":   true,
	"new_owner":        true,
	"broker_id":        true,
	"charge_id":        true,
	"status":           true,
	"is_verified":      true,
	"verified_at":      true,
	"created_at":       true,
}

// UpdateTransfer applies a partial update. Only remarks may change, either
// top-level or inside transfer_charge.
func (s *Service) UpdateTransfer(ctx context.Context, transferID uuid.UUID, fields map[string]json.RawMessage) (*domain.TransferTransaction, error) {
	if len(fields) == 0 {
		return nil, domain.Validation("", "no fields to update")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var remarks *string
	var found bool
	for _, k := range keys {
		switch {
		case k == "remarks":
			r, err := parseRemarks(fields[k], "remarks")
			if err != nil {
				return nil, err
			}
			remarks, found = r, true
		case k == "transfer_charge":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(fields[k], &nested); err != nil {
				return nil, domain.Validation("transfer_charge", "transfer_charge must be an object")
			}
			for nk, raw := range nested {
				if nk != "remarks" {
					return nil, domain.ImmutableField("transfer_charge." + nk)
				}
				r, err := parseRemarks(raw, "transfer_charge.remarks")
				if err != nil {
					return nil, err
				}
				remarks, found = r, true
			}
		case authoritativeFields[k]:
			return nil, domain.ImmutableField(k)
		default:
			return nil, domain.Validation(k, k+" is not an updatable field")
		}
	}
	if !found {
		return nil, domain.Validation("remarks", "remarks is required")
	}

	if _, err := s.Store.Get(ctx, transferID); err != nil {
		return nil, err
	}
	return s.Store.UpdateRemarks(ctx, transferID, remarks)
}

func parseRemarks(raw json.RawMessage, field string) (*string, error) {
	var r *string
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, domain.Validation(field, field+" must be a string or null")
	}
	return r, nil
}
