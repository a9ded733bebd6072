package projector

import "github.com/roach88/trustledger/internal/ir"

// Built-in account event types.
const (
	EventAccountCreated  = "AccountCreated"
	EventBalanceCredited = "BalanceCredited"
	EventFundsWithdrawn  = "FundsWithdrawn"
)

// Account state and payload field names.
const (
	FieldStatus         = "status"
	FieldBalance        = "balance"
	FieldInitialBalance = "initialBalance"
	FieldAmount         = "amount"

	StatusActive = "active"
)

// NewAccountRegistry returns a registry holding the built-in account rules.
func NewAccountRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(EventAccountCreated, AccountCreated)
	r.MustRegister(EventBalanceCredited, BalanceCredited)
	r.MustRegister(EventFundsWithdrawn, FundsWithdrawn)
	return r
}

// AccountCreated sets status to "active" and balance to payload.initialBalance,
// or 0 when the payload has none.
func AccountCreated(state ir.IRObject, p Payload) (ir.IRObject, error) {
	initial, err := p.IntOr(FieldInitialBalance, 0)
	if err != nil {
		return nil, err
	}
	state[FieldStatus] = ir.IRString(StatusActive)
	state[FieldBalance] = ir.IRInt(initial)
	return state, nil
}

// BalanceCredited adds payload.amount to balance.
func BalanceCredited(state ir.IRObject, p Payload) (ir.IRObject, error) {
	amount, err := p.Int(FieldAmount)
	if err != nil {
		return nil, err
	}
	if err := p.AddTo(state, FieldBalance, amount); err != nil {
		return nil, err
	}
	return state, nil
}

// FundsWithdrawn subtracts payload.amount from balance.
// No overdraft check: the log records facts, not commands.
func FundsWithdrawn(state ir.IRObject, p Payload) (ir.IRObject, error) {
	amount, err := p.Int(FieldAmount)
	if err != nil {
		return nil, err
	}
	if err := p.SubFrom(state, FieldBalance, amount); err != nil {
		return nil, err
	}
	return state, nil
}
