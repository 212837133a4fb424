package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMode(t *testing.T) {
	m, ok := ParsePaymentMode("online")
	assert.True(t, ok)
	assert.Equal(t, ModeOnline, m)

	m, ok = ParsePaymentMode(" Cheque ")
	assert.True(t, ok)
	assert.Equal(t, ModeCheque, m)

	_, ok = ParsePaymentMode("CASH")
	assert.False(t, ok)
}

func TestEvidenceView_Online(t *testing.T) {
	v := EvidenceView{Mode: "ONLINE", OnlineDetails: &OnlineEvidence{UTRNo: "UTR123", Method: "NEFT", Date: "2024-01-01"}}
	ev, err := v.Evidence()
	require.NoError(t, err)
	online, ok := ev.(OnlineEvidence)
	require.True(t, ok)
	assert.Equal(t, "UTR123", online.UTRNo)
	assert.Equal(t, ModeOnline, ev.Mode())
}

func TestEvidenceView_Rejections(t *testing.T) {
	online := &OnlineEvidence{UTRNo: "UTR1", Method: "IMPS", Date: "2024-01-01"}
	cheque := &ChequeEvidence{ChequeNo: "000111", BankName: "HDFC", Date: "2024-01-01"}

	cases := []struct {
		name  string
		view  EvidenceView
		field string
	}{
		{"unknown mode", EvidenceView{Mode: "CASH", OnlineDetails: online}, "mode"},
		{"empty mode", EvidenceView{OnlineDetails: online}, "mode"},
		{"online without details", EvidenceView{Mode: ModeOnline}, "online_details"},
		{"online with cheque block", EvidenceView{Mode: ModeOnline, OnlineDetails: online, ChequeDetails: cheque}, "cheque_details"},
		{"cheque without details", EvidenceView{Mode: ModeCheque}, "cheque_details"},
		{"cheque with online block", EvidenceView{Mode: ModeCheque, OnlineDetails: online}, "online_details"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.view.Evidence()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestEncodeDecodeEvidence(t *testing.T) {
	in := ChequeEvidence{ChequeNo: "123456", BankName: "SBI", Date: "2024-02-10", DrawnOn: "Pune"}
	mode, raw, err := EncodeEvidence(&in)
	require.NoError(t, err)
	assert.Equal(t, ModeCheque, mode)

	out, err := DecodeEvidence(mode, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeEvidence("WIRE", raw)
	assert.Error(t, err)
	_, _, err = EncodeEvidence(nil)
	assert.Error(t, err)
}

func TestViewOf(t *testing.T) {
	v := ViewOf(OnlineEvidence{UTRNo: "U1", Method: "RTGS", Date: "2024-01-01"})
	assert.Equal(t, ModeOnline, v.Mode)
	require.NotNil(t, v.OnlineDetails)
	assert.Nil(t, v.ChequeDetails)

	v = ViewOf(&ChequeEvidence{ChequeNo: "9", BankName: "ICICI", Date: "2024-01-01"})
	assert.Equal(t, ModeCheque, v.Mode)
	assert.Nil(t, v.OnlineDetails)
	require.NotNil(t, v.ChequeDetails)
}

func TestTransferTransaction_MarshalJSONIncludesEvidence(t *testing.T) {
	tr := TransferTransaction{NewOwner: NewOwner{Name: "Asha"}}
	require.NoError(t, tr.SetEvidence(OnlineEvidence{UTRNo: "UTR123", Method: "NEFT", Date: "2024-01-01"}))

	b, err := json.Marshal(&tr)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.NotContains(t, out, "PaymentMode")
	assert.NotContains(t, out, "evidence_details")
	assert.Equal(t, "Asha", out["new_owner"].(map[string]interface{})["name"])
	pe := out["payment_evidence"].(map[string]interface{})
	assert.Equal(t, "ONLINE", pe["mode"])
	assert.Equal(t, "UTR123", pe["online_details"].(map[string]interface{})["utr_no"])
}
