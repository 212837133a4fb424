package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Transport("backoffice GET /x", cause)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "backoffice GET /x: dial tcp: timeout", err.Error())

	wrapped := fmt.Errorf("create: %w", NoPendingCharge("c1"))
	assert.True(t, errors.Is(wrapped, ErrNoPendingCharge))
	assert.False(t, errors.Is(wrapped, ErrIneligibleCustomer))
}

func TestReasonCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", ReasonCode(NotFound("customer", "x")))
	assert.Equal(t, "VALIDATION", ReasonCode(Validation("amount", "bad")))
	assert.Equal(t, "NOT_ELIGIBLE", ReasonCode(Ineligible("x")))
	assert.Equal(t, "NO_CHARGE_PAID", ReasonCode(NoPendingCharge("x")))
	assert.Equal(t, "IMMUTABLE_FIELD", ReasonCode(ImmutableField("unit_id")))
	assert.Equal(t, "TRANSPORT", ReasonCode(Transport("op", errors.New("x"))))
	assert.Equal(t, "UPSTREAM_REJECTED", ReasonCode(UpstreamRejected("Customer record locked")))
	assert.Equal(t, "INTERNAL", ReasonCode(errors.New("boom")))

	// The orphan warning wins over its cause.
	assert.Equal(t, "ORPHANED", ReasonCode(Orphaned("t1", Transport("op", errors.New("x")))))
}
