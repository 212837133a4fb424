package transfers

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State is a step of one transfer attempt.
type State string

const (
	StateInit            State = "INIT"
	StateEligibleChecked State = "ELIGIBLE_CHECKED"
	StateChargeVerified  State = "CHARGE_VERIFIED"
	StateRecorded        State = "RECORDED"
	StateConsumed        State = "CONSUMED"
	StateRejected        State = "REJECTED"
)

var transitions = map[State][]State{
	StateInit:            {StateEligibleChecked, StateRejected},
	StateEligibleChecked: {StateChargeVerified, StateRejected},
	StateChargeVerified:  {StateRecorded, StateConsumed, StateRejected},
	StateRecorded:        {StateConsumed, StateRejected},
}

// attempt tracks the state of one createTransfer / markTransferChargeUsed call.
// CHARGE_VERIFIED -> CONSUMED is the mark-used path, which records nothing.
type attempt struct {
	op         string
	customerID uuid.UUID
	state      State
	path       []State
}

func newAttempt(op string, customerID uuid.UUID) *attempt {
	return &attempt{op: op, customerID: customerID, state: StateInit, path: []State{StateInit}}
}

func (a *attempt) advance(to State) {
	for _, allowed := range transitions[a.state] {
		if allowed == to {
			a.state = to
			a.path = append(a.path, to)
			return
		}
	}
	panic(fmt.Sprintf("transfers: illegal transition %s -> %s", a.state, to))
}

// reject moves the attempt to REJECTED and returns err unchanged.
func (a *attempt) reject(err error) error {
	from := a.state
	a.advance(StateRejected)
	log.Debug().
		Str("op", a.op).
		Str("customer_id", a.customerID.String()).
		Str("from_state", string(from)).
		Err(err).
		Msg("transfer attempt rejected")
	return err
}
