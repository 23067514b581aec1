package events

import (
	"math/big"

	"taskchain/core/types"
)

const (
	// TypeBalanceEndowed is emitted when root mints native currency into an
	// account.
	TypeBalanceEndowed = "balances.endowed"
)

type BalanceEndowed struct {
	Account [20]byte
	Amount  *big.Int
	// Issuance is the total supply after the mint.
	Issuance *big.Int
}

func (BalanceEndowed) EventType() string { return TypeBalanceEndowed }

func (e BalanceEndowed) Event() *types.Event {
	return &types.Event{
		Type: TypeBalanceEndowed,
		Attributes: map[string]string{
			"account":  formatAccount(e.Account),
			"amount":   formatAmount(e.Amount),
			"issuance": formatAmount(e.Issuance),
		},
	}
}
