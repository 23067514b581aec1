package campaign

import (
	"bytes"
	"math/big"

	coreerrors "taskchain/core/errors"
	"taskchain/core/types"
)

type mockState struct {
	campaigns   map[string]*Campaign
	sequence    uint64
	approved    []ID
	payout      []ID
	pending     map[string]map[[20]byte]*PendingReward
	outstanding map[string][][20]byte
}

func newMockState() *mockState {
	return &mockState{
		campaigns:   make(map[string]*Campaign),
		pending:     make(map[string]map[[20]byte]*PendingReward),
		outstanding: make(map[string][][20]byte),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func cloneIDs(ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ID, len(ids))
	for i, id := range ids {
		out[i] = id.Clone()
	}
	return out
}

func (m *mockState) CampaignGet(id ID) (*Campaign, bool, error) {
	c, ok := m.campaigns[string(id)]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (m *mockState) CampaignPut(c *Campaign) error {
	m.campaigns[string(c.ID)] = c.Clone()
	return nil
}

func (m *mockState) CampaignDelete(id ID) error {
	delete(m.campaigns, string(id))
	return nil
}

func (m *mockState) CampaignSequence() (uint64, error) { return m.sequence, nil }

func (m *mockState) SetCampaignSequence(next uint64) error {
	m.sequence = next
	return nil
}

func (m *mockState) CampaignApprovedList() ([]ID, error) { return cloneIDs(m.approved), nil }

func (m *mockState) SetCampaignApprovedList(ids []ID) error {
	m.approved = cloneIDs(ids)
	return nil
}

func (m *mockState) CampaignPayoutIndex() ([]ID, error) { return cloneIDs(m.payout), nil }

func (m *mockState) SetCampaignPayoutIndex(ids []ID) error {
	m.payout = cloneIDs(ids)
	return nil
}

func (m *mockState) CampaignPendingReward(scope ID, who [20]byte) (*PendingReward, bool, error) {
	rewards, ok := m.pending[string(scope)]
	if !ok {
		return nil, false, nil
	}
	reward, ok := rewards[who]
	if !ok {
		return nil, false, nil
	}
	return reward.Clone(), true, nil
}

func (m *mockState) SetCampaignPendingReward(scope ID, who [20]byte, reward *PendingReward) error {
	rewards, ok := m.pending[string(scope)]
	if !ok {
		rewards = make(map[[20]byte]*PendingReward)
		m.pending[string(scope)] = rewards
	}
	rewards[who] = reward.Clone()
	return nil
}

func (m *mockState) CampaignOutstanding(scope ID) ([][20]byte, error) {
	return cloneAccounts(m.outstanding[string(scope)]), nil
}

func (m *mockState) SetCampaignOutstanding(scope ID, accounts [][20]byte) error {
	if len(accounts) == 0 {
		delete(m.outstanding, string(scope))
		return nil
	}
	m.outstanding[string(scope)] = cloneAccounts(accounts)
	return nil
}

// mockLedger is a minimal balances ledger with an existential deposit.
type mockLedger struct {
	accounts map[[20]byte]*types.Account
	ed       *big.Int
	issuance *big.Int
}

func newMockLedger(ed int64) *mockLedger {
	return &mockLedger{
		accounts: make(map[[20]byte]*types.Account),
		ed:       big.NewInt(ed),
		issuance: big.NewInt(0),
	}
}

func (l *mockLedger) account(who [20]byte) *types.Account {
	acc, ok := l.accounts[who]
	if !ok {
		acc = types.NewAccount()
		l.accounts[who] = acc
	}
	return acc
}

func (l *mockLedger) fund(who [20]byte, amount int64) {
	acc := l.account(who)
	acc.Free.Add(acc.Free, big.NewInt(amount))
	l.issuance.Add(l.issuance, big.NewInt(amount))
}

func (l *mockLedger) free(who [20]byte) *big.Int {
	return new(big.Int).Set(l.account(who).Free)
}

func (l *mockLedger) reserved(who [20]byte) *big.Int {
	return new(big.Int).Set(l.account(who).Reserved)
}

func (l *mockLedger) reap(who [20]byte) {
	acc := l.account(who)
	if acc.Total().Sign() > 0 && acc.Total().Cmp(l.ed) < 0 {
		l.issuance.Sub(l.issuance, acc.Total())
		delete(l.accounts, who)
	}
}

func (l *mockLedger) Reserve(who [20]byte, amount *big.Int) error {
	acc := l.account(who)
	if acc.Free.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	acc.Free.Sub(acc.Free, amount)
	acc.Reserved.Add(acc.Reserved, amount)
	return nil
}

func (l *mockLedger) Unreserve(who [20]byte, amount *big.Int) (*big.Int, error) {
	acc := l.account(who)
	moved := new(big.Int).Set(amount)
	if acc.Reserved.Cmp(moved) < 0 {
		moved.Set(acc.Reserved)
	}
	acc.Reserved.Sub(acc.Reserved, moved)
	acc.Free.Add(acc.Free, moved)
	return moved, nil
}

func (l *mockLedger) SlashReserved(who [20]byte, amount *big.Int) (*big.Int, *big.Int, error) {
	acc := l.account(who)
	slashed := new(big.Int).Set(amount)
	if acc.Reserved.Cmp(slashed) < 0 {
		slashed.Set(acc.Reserved)
	}
	acc.Reserved.Sub(acc.Reserved, slashed)
	l.issuance.Sub(l.issuance, slashed)
	return slashed, new(big.Int).Sub(amount, slashed), nil
}

func (l *mockLedger) Withdraw(who [20]byte, amount *big.Int, keepAlive bool) (*types.Imbalance, error) {
	acc := l.account(who)
	if acc.Free.Cmp(amount) < 0 {
		return nil, coreerrors.ErrInsufficientBalance
	}
	left := new(big.Int).Sub(acc.Free, amount)
	if keepAlive && left.Cmp(l.ed) < 0 {
		return nil, coreerrors.ErrExistentialDeposit
	}
	acc.Free = left
	l.issuance.Sub(l.issuance, amount)
	l.reap(who)
	return types.NewImbalance(amount), nil
}

func (l *mockLedger) ResolveCreating(who [20]byte, imbalance *types.Imbalance) error {
	if imbalance.IsZero() {
		return nil
	}
	return l.DepositCreating(who, imbalance.Amount)
}

func (l *mockLedger) DepositCreating(who [20]byte, amount *big.Int) error {
	acc := l.account(who)
	if acc.Total().Sign() == 0 && amount.Cmp(l.ed) < 0 {
		return coreerrors.ErrExistentialDeposit
	}
	acc.Free.Add(acc.Free, amount)
	l.issuance.Add(l.issuance, amount)
	return nil
}

func (l *mockLedger) Transfer(from, to [20]byte, amount *big.Int, keepAlive bool) error {
	src := l.account(from)
	if src.Free.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	left := new(big.Int).Sub(src.Free, amount)
	if keepAlive && left.Cmp(l.ed) < 0 {
		return coreerrors.ErrExistentialDeposit
	}
	dst := l.account(to)
	if dst.Total().Sign() == 0 && amount.Cmp(l.ed) < 0 {
		return coreerrors.ErrExistentialDeposit
	}
	src.Free = left
	dst.Free.Add(dst.Free, amount)
	l.reap(from)
	return nil
}

func (l *mockLedger) FreeBalance(who [20]byte) (*big.Int, error) { return l.free(who), nil }

func (l *mockLedger) ReservedBalance(who [20]byte) (*big.Int, error) { return l.reserved(who), nil }

func (l *mockLedger) MinimumBalance() *big.Int { return new(big.Int).Set(l.ed) }
