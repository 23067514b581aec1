package balances

import (
	"fmt"
	"math/big"

	coreerrors "taskchain/core/errors"
	"taskchain/core/types"
)

// DefaultExistentialDeposit is the smallest total balance an account may hold.
const DefaultExistentialDeposit = 1

type ledgerState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TotalIssuance() (*big.Int, error)
	AdjustTotalIssuance(delta *big.Int) (*big.Int, error)
}

// Ledger implements the native-currency operations consumed by module
// engines. Accounts whose total balance drops below the existential deposit
// are reaped and the dust is burned from total issuance.
type Ledger struct {
	state              ledgerState
	existentialDeposit *big.Int
}

// NewLedger returns a ledger backed by st. A nil or negative existential
// deposit falls back to DefaultExistentialDeposit.
func NewLedger(st ledgerState, existentialDeposit *big.Int) *Ledger {
	ed := big.NewInt(DefaultExistentialDeposit)
	if existentialDeposit != nil && existentialDeposit.Sign() >= 0 {
		ed = new(big.Int).Set(existentialDeposit)
	}
	return &Ledger{state: st, existentialDeposit: ed}
}

func (l *Ledger) load(who [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("balances: state not configured")
	}
	acc, err := l.state.GetAccount(who[:])
	if err != nil {
		return nil, err
	}
	return acc.Normalize(), nil
}

// store persists acc, reaping it when its total falls below the existential
// deposit.
func (l *Ledger) store(who [20]byte, acc *types.Account) error {
	total := acc.Total()
	if total.Sign() > 0 && total.Cmp(l.existentialDeposit) < 0 {
		if _, err := l.state.AdjustTotalIssuance(new(big.Int).Neg(total)); err != nil {
			return err
		}
		acc = types.NewAccount()
	}
	return l.state.PutAccount(who[:], acc)
}

func (l *Ledger) alive(acc *types.Account) bool {
	return acc.Total().Sign() > 0
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	return nil
}

// MinimumBalance returns the existential deposit.
func (l *Ledger) MinimumBalance() *big.Int {
	return new(big.Int).Set(l.existentialDeposit)
}

// FreeBalance returns the spendable balance of who.
func (l *Ledger) FreeBalance(who [20]byte) (*big.Int, error) {
	acc, err := l.load(who)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Free), nil
}

// ReservedBalance returns the reserved balance of who.
func (l *Ledger) ReservedBalance(who [20]byte) (*big.Int, error) {
	acc, err := l.load(who)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Reserved), nil
}

// TotalIssuance returns the tracked supply.
func (l *Ledger) TotalIssuance() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("balances: state not configured")
	}
	return l.state.TotalIssuance()
}

// Reserve moves amount from the free to the reserved balance of who.
func (l *Ledger) Reserve(who [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	acc, err := l.load(who)
	if err != nil {
		return err
	}
	if acc.Free.Cmp(amount) < 0 {
		return fmt.Errorf("%w: free %s, reserve %s", coreerrors.ErrInsufficientBalance, acc.Free, amount)
	}
	acc.Free.Sub(acc.Free, amount)
	acc.Reserved.Add(acc.Reserved, amount)
	return l.state.PutAccount(who[:], acc)
}

// Unreserve moves up to amount from the reserved back to the free balance and
// returns the amount actually moved.
func (l *Ledger) Unreserve(who [20]byte, amount *big.Int) (*big.Int, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	acc, err := l.load(who)
	if err != nil {
		return nil, err
	}
	moved := new(big.Int).Set(amount)
	if acc.Reserved.Cmp(moved) < 0 {
		moved.Set(acc.Reserved)
	}
	if moved.Sign() == 0 {
		return moved, nil
	}
	acc.Reserved.Sub(acc.Reserved, moved)
	acc.Free.Add(acc.Free, moved)
	if err := l.state.PutAccount(who[:], acc); err != nil {
		return nil, err
	}
	return moved, nil
}

// SlashReserved destroys up to amount of who's reserved balance. It returns
// the slashed amount and the shortfall. The slashed value leaves total
// issuance; callers that want to keep it must deposit it elsewhere.
func (l *Ledger) SlashReserved(who [20]byte, amount *big.Int) (*big.Int, *big.Int, error) {
	if err := checkAmount(amount); err != nil {
		return nil, nil, err
	}
	acc, err := l.load(who)
	if err != nil {
		return nil, nil, err
	}
	slashed := new(big.Int).Set(amount)
	if acc.Reserved.Cmp(slashed) < 0 {
		slashed.Set(acc.Reserved)
	}
	shortfall := new(big.Int).Sub(amount, slashed)
	if slashed.Sign() == 0 {
		return slashed, shortfall, nil
	}
	acc.Reserved.Sub(acc.Reserved, slashed)
	if _, err := l.state.AdjustTotalIssuance(new(big.Int).Neg(slashed)); err != nil {
		return nil, nil, err
	}
	if err := l.store(who, acc); err != nil {
		return nil, nil, err
	}
	return slashed, shortfall, nil
}

// Withdraw removes amount from who's free balance and returns it as an
// imbalance. With keepAlive the account must stay at or above the existential
// deposit.
func (l *Ledger) Withdraw(who [20]byte, amount *big.Int, keepAlive bool) (*types.Imbalance, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	acc, err := l.load(who)
	if err != nil {
		return nil, err
	}
	if acc.Free.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: free %s, withdraw %s", coreerrors.ErrInsufficientBalance, acc.Free, amount)
	}
	acc.Free.Sub(acc.Free, amount)
	if keepAlive && acc.Total().Cmp(l.existentialDeposit) < 0 {
		return nil, coreerrors.ErrExistentialDeposit
	}
	if amount.Sign() > 0 {
		if _, err := l.state.AdjustTotalIssuance(new(big.Int).Neg(amount)); err != nil {
			return nil, err
		}
	}
	if err := l.store(who, acc); err != nil {
		return nil, err
	}
	return types.NewImbalance(amount), nil
}

// ResolveCreating credits an imbalance to who, creating the account if needed.
func (l *Ledger) ResolveCreating(who [20]byte, imbalance *types.Imbalance) error {
	if imbalance.IsZero() {
		return nil
	}
	return l.DepositCreating(who, imbalance.Amount)
}

// DepositCreating mints amount into who's free balance. A new account must
// receive at least the existential deposit.
func (l *Ledger) DepositCreating(who [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	acc, err := l.load(who)
	if err != nil {
		return err
	}
	if !l.alive(acc) && amount.Cmp(l.existentialDeposit) < 0 {
		return fmt.Errorf("%w: deposit %s below %s", coreerrors.ErrExistentialDeposit, amount, l.existentialDeposit)
	}
	acc.Free.Add(acc.Free, amount)
	if _, err := l.state.AdjustTotalIssuance(amount); err != nil {
		return err
	}
	return l.state.PutAccount(who[:], acc)
}

// Transfer moves amount of free balance from one account to another. Without
// keepAlive the source may be reaped.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int, keepAlive bool) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	src, err := l.load(from)
	if err != nil {
		return err
	}
	if src.Free.Cmp(amount) < 0 {
		return fmt.Errorf("%w: free %s, transfer %s", coreerrors.ErrInsufficientBalance, src.Free, amount)
	}
	dst, err := l.load(to)
	if err != nil {
		return err
	}
	if !l.alive(dst) && amount.Cmp(l.existentialDeposit) < 0 {
		return fmt.Errorf("%w: transfer %s below %s", coreerrors.ErrExistentialDeposit, amount, l.existentialDeposit)
	}
	src.Free.Sub(src.Free, amount)
	if keepAlive && src.Total().Cmp(l.existentialDeposit) < 0 {
		return coreerrors.ErrExistentialDeposit
	}
	dst.Free.Add(dst.Free, amount)
	if err := l.state.PutAccount(to[:], dst); err != nil {
		return err
	}
	return l.store(from, src)
}
