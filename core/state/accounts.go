package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"taskchain/core/types"
)

var (
	accountPrefix  = []byte("account:")
	issuanceKey    = []byte("balances/total-issuance")
	maxAccountBits = 128
)

// storedAccount is the on-disk form of types.Account. Balances are bounded
// to 128 bits.
type storedAccount struct {
	Nonce    uint64
	Free     *uint256.Int
	Reserved *uint256.Int
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return buf
}

func toStoredBalance(label string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%s balance must not be negative", label)
	}
	if v.BitLen() > maxAccountBits {
		return nil, fmt.Errorf("%s balance overflow", label)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%s balance overflow", label)
	}
	return out, nil
}

// GetAccount returns the account stored under addr. Unknown addresses yield
// an empty account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	data, err := m.get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return types.NewAccount(), nil
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	account := types.NewAccount()
	account.Nonce = stored.Nonce
	if stored.Free != nil {
		account.Free = stored.Free.ToBig()
	}
	if stored.Reserved != nil {
		account.Reserved = stored.Reserved.ToBig()
	}
	return account, nil
}

// PutAccount persists the account under addr. An account with no balance and
// a zero nonce is removed from state.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	account.Normalize()
	if account.Nonce == 0 && account.Total().Sign() == 0 {
		return m.delete(accountKey(addr))
	}
	free, err := toStoredBalance("free", account.Free)
	if err != nil {
		return err
	}
	reserved, err := toStoredBalance("reserved", account.Reserved)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, Free: free, Reserved: reserved})
	if err != nil {
		return err
	}
	return m.put(accountKey(addr), encoded)
}

// AccountExists reports whether any state is stored for addr.
func (m *Manager) AccountExists(addr []byte) (bool, error) {
	data, err := m.get(accountKey(addr))
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// TotalIssuance returns the tracked native-currency supply.
func (m *Manager) TotalIssuance() (*big.Int, error) {
	data, err := m.get(issuanceKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(data, total); err != nil {
		return nil, err
	}
	return total, nil
}

// SetTotalIssuance overwrites the tracked supply.
func (m *Manager) SetTotalIssuance(amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("total issuance cannot be negative")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.put(issuanceKey, encoded)
}

// AdjustTotalIssuance adds delta to the tracked supply and returns the updated
// total.
func (m *Manager) AdjustTotalIssuance(delta *big.Int) (*big.Int, error) {
	current, err := m.TotalIssuance()
	if err != nil {
		return nil, err
	}
	if delta == nil {
		return current, nil
	}
	updated := new(big.Int).Add(current, delta)
	if updated.Sign() < 0 {
		return nil, fmt.Errorf("total issuance underflow")
	}
	if err := m.SetTotalIssuance(updated); err != nil {
		return nil, err
	}
	return updated, nil
}
