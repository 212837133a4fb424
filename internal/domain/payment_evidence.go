package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

type PaymentMode string

const (
	ModeOnline PaymentMode = "ONLINE"
	ModeCheque PaymentMode = "CHEQUE"
)

// ParsePaymentMode accepts the mode case-insensitively.
func ParsePaymentMode(s string) (PaymentMode, bool) {
	switch PaymentMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeOnline:
		return ModeOnline, true
	case ModeCheque:
		return ModeCheque, true
	}
	return "", false
}

// PaymentEvidence is either OnlineEvidence or ChequeEvidence. The interface is
// sealed; switch on the concrete type.
type PaymentEvidence interface {
	Mode() PaymentMode
	isPaymentEvidence()
}

// OnlineEvidence references an online bank transfer.
type OnlineEvidence struct {
	UTRNo    string `json:"utr_no" validate:"required"`
	Method   string `json:"method" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	BankName string `json:"bank_name,omitempty"`
}

func (OnlineEvidence) Mode() PaymentMode { return ModeOnline }
func (OnlineEvidence) isPaymentEvidence() {}

// ChequeEvidence references a cheque.
type ChequeEvidence struct {
	ChequeNo string `json:"cheque_no" validate:"required"`
	BankName string `json:"bank_name" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	DrawnOn  string `json:"drawn_on,omitempty"`
}

func (ChequeEvidence) Mode() PaymentMode { return ModeCheque }
func (ChequeEvidence) isPaymentEvidence() {}

// EncodeEvidence flattens evidence into the mode + details columns.
func EncodeEvidence(e PaymentEvidence) (PaymentMode, datatypes.JSON, error) {
	var v any
	switch ev := e.(type) {
	case OnlineEvidence:
		v = ev
	case *OnlineEvidence:
		v = *ev
	case ChequeEvidence:
		v = ev
	case *ChequeEvidence:
		v = *ev
	default:
		return "", nil, fmt.Errorf("unsupported payment evidence %T", e)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return e.Mode(), datatypes.JSON(b), nil
}

// DecodeEvidence rebuilds evidence from the stored mode + details.
func DecodeEvidence(mode PaymentMode, raw []byte) (PaymentEvidence, error) {
	switch mode {
	case ModeOnline:
		var ev OnlineEvidence
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode online evidence: %w", err)
		}
		return ev, nil
	case ModeCheque:
		var ev ChequeEvidence
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode cheque evidence: %w", err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown payment mode %q", mode)
}

// EvidenceView is the wire shape: mode plus exactly one populated details block.
type EvidenceView struct {
	Mode          PaymentMode     `json:"mode"`
	OnlineDetails *OnlineEvidence `json:"online_details,omitempty"`
	ChequeDetails *ChequeEvidence `json:"cheque_details,omitempty"`
}

func ViewOf(e PaymentEvidence) EvidenceView {
	switch ev := e.(type) {
	case OnlineEvidence:
		return EvidenceView{Mode: ModeOnline, OnlineDetails: &ev}
	case *OnlineEvidence:
		return EvidenceView{Mode: ModeOnline, OnlineDetails: ev}
	case ChequeEvidence:
		return EvidenceView{Mode: ModeCheque, ChequeDetails: &ev}
	case *ChequeEvidence:
		return EvidenceView{Mode: ModeCheque, ChequeDetails: ev}
	}
	return EvidenceView{}
}

// Evidence resolves the view into a single variant. The declared mode must match
// the one details block that is present.
func (v EvidenceView) Evidence() (PaymentEvidence, error) {
	mode, ok := ParsePaymentMode(string(v.Mode))
	if !ok {
		return nil, Validation("mode", "mode must be ONLINE or CHEQUE")
	}
	switch mode {
	case ModeOnline:
		if v.ChequeDetails != nil {
			return nil, Validation("cheque_details", "cheque_details not allowed for ONLINE payments")
		}
		if v.OnlineDetails == nil {
			return nil, Validation("online_details", "online_details is required for ONLINE payments")
		}
		return *v.OnlineDetails, nil
	default:
		if v.OnlineDetails != nil {
			return nil, Validation("online_details", "online_details not allowed for CHEQUE payments")
		}
		if v.ChequeDetails == nil {
			return nil, Validation("cheque_details", "cheque_details is required for CHEQUE payments")
		}
		return *v.ChequeDetails, nil
	}
}
