package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() (*memStore, uuid.UUID) {
	store := newMemStore()
	id := uuid.New()
	store.rows[id] = &domain.TransferTransaction{TransferID: id, Status: domain.TransferConsumed}
	return store, id
}

func fields(t *testing.T, body string) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestUpdateTransfer_Remarks(t *testing.T) {
	store, id := seededStore()
	svc := &Service{Store: store}

	tr, err := svc.UpdateTransfer(context.Background(), id, fields(t, `{"remarks":"paid at counter"}`))
	require.NoError(t, err)
	require.NotNil(t, tr.Charge.Remarks)
	assert.Equal(t, "paid at counter", *tr.Charge.Remarks)

	tr, err = svc.UpdateTransfer(context.Background(), id, fields(t, `{"transfer_charge":{"remarks":null}}`))
	require.NoError(t, err)
	assert.Nil(t, tr.Charge.Remarks)
}

func TestUpdateTransfer_ImmutableFields(t *testing.T) {
	store, id := seededStore()
	svc := &Service{Store: store}

	for _, body := range []string{
		`{"amount":"1"}`,
		`{"remarks":"ok","unit_id":"x"}`,
		`{"payment_evidence":{}}`,
		`{"new_owner":{"name":"x"}}`,
		`{"transfer_charge":{"amount":"10"}}`,
	} {
		_, err := svc.UpdateTransfer(context.Background(), id, fields(t, body))
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, domain.ErrImmutableField), body)
	}
	assert.Nil(t, store.rows[id].Charge.Remarks)
}

func TestUpdateTransfer_Invalid(t *testing.T) {
	store, id := seededStore()
	svc := &Service{Store: store}
	ctx := context.Background()

	_, err := svc.UpdateTransfer(ctx, id, map[string]json.RawMessage{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.UpdateTransfer(ctx, id, fields(t, `{"colour":"red"}`))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.UpdateTransfer(ctx, id, fields(t, `{"remarks":42}`))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.UpdateTransfer(ctx, uuid.New(), fields(t, `{"remarks":"x"}`))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
