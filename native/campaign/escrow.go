package campaign

import (
	"fmt"
	"math/big"
)

// escrowController performs every fund movement on behalf of the engine.
type escrowController struct {
	ledger Ledger
	params Params
}

// reserveBond computes the bond for value and reserves it from the client.
// A failed reservation aborts the calling operation.
func (c escrowController) reserveBond(client [20]byte, value *big.Int) (*big.Int, error) {
	bond := c.params.BondFor(value)
	if bond.Sign() == 0 {
		return bond, nil
	}
	if err := c.ledger.Reserve(client, bond); err != nil {
		return nil, fmt.Errorf("reserve bond: %w", err)
	}
	return bond, nil
}

// fundCampaignAccount moves value from the client's free balance into the
// escrow account. The client is kept alive.
func (c escrowController) fundCampaignAccount(client, account [20]byte, value *big.Int) error {
	imbalance, err := c.ledger.Withdraw(client, value, true)
	if err != nil {
		return fmt.Errorf("fund campaign account: %w", err)
	}
	if err := c.ledger.ResolveCreating(account, imbalance); err != nil {
		return fmt.Errorf("fund campaign account: %w", err)
	}
	return nil
}

// unreserveBond releases up to bond back to the client's free balance and
// returns the amount actually released.
func (c escrowController) unreserveBond(client [20]byte, bond *big.Int) (*big.Int, error) {
	if bond == nil || bond.Sign() == 0 {
		return big.NewInt(0), nil
	}
	released, err := c.ledger.Unreserve(client, bond)
	if err != nil {
		return nil, fmt.Errorf("unreserve bond: %w", err)
	}
	return released, nil
}

// slashBond destroys the client's reserved bond and redeposits the slashed
// amount into sink so issuance is preserved. Any shortfall aborts.
func (c escrowController) slashBond(client, sink [20]byte, bond *big.Int) (*big.Int, error) {
	if bond == nil || bond.Sign() == 0 {
		return big.NewInt(0), nil
	}
	slashed, shortfall, err := c.ledger.SlashReserved(client, bond)
	if err != nil {
		return nil, fmt.Errorf("slash bond: %w", err)
	}
	if shortfall != nil && shortfall.Sign() > 0 {
		return nil, fmt.Errorf("%w: %s of %s unavailable", ErrBondShortfall, shortfall, bond)
	}
	if err := c.deposit(sink, slashed); err != nil {
		return nil, fmt.Errorf("slash bond: %w", err)
	}
	return slashed, nil
}

// remainingBudget is the free balance the account can pay out while staying
// above the minimum balance.
func (c escrowController) remainingBudget(account [20]byte) (*big.Int, error) {
	free, err := c.ledger.FreeBalance(account)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(cloneBigInt(free), cloneBigInt(c.ledger.MinimumBalance()))
	if remaining.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return remaining, nil
}

// requireEmpty fails when account still holds funds, such as the unspent
// budget a settled campaign left behind under the same id.
func (c escrowController) requireEmpty(account [20]byte) error {
	free, err := c.ledger.FreeBalance(account)
	if err != nil {
		return err
	}
	reserved, err := c.ledger.ReservedBalance(account)
	if err != nil {
		return err
	}
	if (free != nil && free.Sign() > 0) || (reserved != nil && reserved.Sign() > 0) {
		return fmt.Errorf("%w: campaign account %x still holds funds", ErrDuplicateCampaign, account)
	}
	return nil
}

// deposit mints amount directly into account.
func (c escrowController) deposit(account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return c.ledger.DepositCreating(account, amount)
}

// pay moves amount out of an escrow account to a recipient.
func (c escrowController) pay(from, to [20]byte, amount *big.Int, keepAlive bool) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return c.ledger.Transfer(from, to, amount, keepAlive)
}

// drain empties account into to and returns the amount moved. Draining lets
// the source account be reaped.
func (c escrowController) drain(account, to [20]byte) (*big.Int, error) {
	free, err := c.ledger.FreeBalance(account)
	if err != nil {
		return nil, err
	}
	if free == nil || free.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := c.ledger.Transfer(account, to, free, false); err != nil {
		return nil, fmt.Errorf("drain %x: %w", account, err)
	}
	return new(big.Int).Set(free), nil
}
