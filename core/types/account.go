package types

import "math/big"

// Account holds the native-currency balances of a single address. Free funds
// are spendable; Reserved funds are held on behalf of a module (bonds) and can
// only leave the account by being unreserved or slashed.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Free     *big.Int `json:"free"`
	Reserved *big.Int `json:"reserved"`
}

// NewAccount returns an empty account with non-nil balances.
func NewAccount() *Account {
	return &Account{Free: big.NewInt(0), Reserved: big.NewInt(0)}
}

// Normalize replaces nil balances with zero and returns the receiver.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.Free == nil {
		a.Free = big.NewInt(0)
	}
	if a.Reserved == nil {
		a.Reserved = big.NewInt(0)
	}
	return a
}

// Total returns free plus reserved balance.
func (a *Account) Total() *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	total := new(big.Int)
	if a.Free != nil {
		total.Add(total, a.Free)
	}
	if a.Reserved != nil {
		total.Add(total, a.Reserved)
	}
	return total
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := &Account{Nonce: a.Nonce, Free: big.NewInt(0), Reserved: big.NewInt(0)}
	if a.Free != nil {
		out.Free.Set(a.Free)
	}
	if a.Reserved != nil {
		out.Reserved.Set(a.Reserved)
	}
	return out
}

// Imbalance is value that has left one account without yet arriving in
// another. Ledger withdrawals return one and the caller must resolve it into a
// destination account; an imbalance that is dropped shows up as a fall in
// total issuance.
type Imbalance struct {
	Amount *big.Int
}

// NewImbalance wraps a copy of amount.
func NewImbalance(amount *big.Int) *Imbalance {
	if amount == nil {
		return &Imbalance{Amount: big.NewInt(0)}
	}
	return &Imbalance{Amount: new(big.Int).Set(amount)}
}

// IsZero reports whether the imbalance carries no value.
func (i *Imbalance) IsZero() bool {
	return i == nil || i.Amount == nil || i.Amount.Sign() == 0
}
