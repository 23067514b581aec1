package campaign

import (
	"fmt"
	"math/big"

	"taskchain/core/events"
)

// Payment credits perHead to every beneficiary out of a single campaign's
// budget. It is only available with the per-campaign topology.
func (e *Engine) Payment(origin Origin, id ID, beneficiaries [][20]byte, perHead *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.params.Topology != TopologyPerCampaign {
		return ErrWrongTopology
	}
	if !e.auth.IsRewardAuthority(origin) {
		return ErrBadOrigin
	}
	total, err := allocationTotal(beneficiaries, perHead)
	if err != nil {
		return err
	}
	store := e.store()
	c, err := store.get(id)
	if err != nil {
		return err
	}
	if e.params.RequireApproval && c.Status != StatusApproved {
		return ErrNotApproved
	}
	allocated, err := checkedAdd(c.Allocated, total)
	if err != nil {
		return err
	}
	if allocated.Cmp(c.Value) >= 0 {
		return fmt.Errorf("%w: %s allocated against value %s", ErrNotEnoughBalanceForUsers, allocated, c.Value)
	}
	// The campaign account has to keep the minimum balance until the last
	// claim, so that much of the value is never allocated.
	if headroom := new(big.Int).Sub(c.Value, allocated); headroom.Cmp(cloneBigInt(e.ledger.MinimumBalance())) < 0 {
		return fmt.Errorf("%w: %s allocated leaves %s, below the minimum balance %s", ErrNotEnoughBalanceForUsers, allocated, headroom, e.ledger.MinimumBalance())
	}
	if c.BondState == BondReserved {
		if _, err := e.escrow().unreserveBond(c.Client, c.Bond); err != nil {
			return err
		}
		c.BondState = BondReleased
	}
	c.Allocated = allocated
	if err := store.put(c); err != nil {
		return err
	}
	height := e.height()
	if err := e.credit(c.ID, beneficiaries, perHead, height); err != nil {
		return err
	}
	if err := e.addToPayoutIndex(c.ID); err != nil {
		return err
	}
	e.emit(events.CampaignPayment{
		ID:            c.ID.Clone(),
		Beneficiaries: cloneAccounts(beneficiaries),
		Amount:        total,
		Height:        height,
	})
	return nil
}

// Reward settles approved campaigns out of the shared pool. Every requested
// id (all approved ids when ids is empty) is validated before anything moves.
// The approved list is then walked in approval order and each requested
// campaign whose value fits the pool's remaining budget is settled: it leaves
// the store and every beneficiary is credited perHead. Campaigns that do not
// fit stay approved for a later call. The settled ids are returned.
func (e *Engine) Reward(origin Origin, ids []ID, beneficiaries [][20]byte, perHead *big.Int) ([]ID, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.params.Topology != TopologySharedPool {
		return nil, ErrWrongTopology
	}
	if !e.auth.IsRewardAuthority(origin) {
		return nil, ErrBadOrigin
	}
	total, err := allocationTotal(beneficiaries, perHead)
	if err != nil {
		return nil, err
	}
	approved, err := e.state.CampaignApprovedList()
	if err != nil {
		return nil, err
	}
	requested := ids
	if len(requested) == 0 {
		requested = approved
	}
	store := e.store()
	for _, id := range requested {
		c, err := store.get(id)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: %w", id, err)
		}
		if c.Status != StatusApproved || !containsID(approved, c.ID) {
			return nil, fmt.Errorf("campaign %s: %w", id, ErrNotApproved)
		}
		if total.Cmp(c.Value) >= 0 {
			return nil, fmt.Errorf("campaign %s: %w", id, ErrNotEnoughBalanceForUsers)
		}
	}

	remaining, err := e.poolBudget()
	if err != nil {
		return nil, err
	}
	escrow := e.escrow()
	height := e.height()
	var settled []ID
	kept := make([]ID, 0, len(approved))
	for _, id := range approved {
		if !containsID(requested, id) {
			kept = append(kept, id)
			continue
		}
		c, err := store.get(id)
		if err != nil {
			return nil, err
		}
		if c.Value.Cmp(remaining) > 0 {
			kept = append(kept, id)
			continue
		}
		remaining.Sub(remaining, c.Value)
		if err := store.remove(c.ID); err != nil {
			return nil, err
		}
		if c.BondState == BondReserved {
			if _, err := escrow.unreserveBond(c.Client, c.Bond); err != nil {
				return nil, err
			}
		}
		if err := e.credit(PoolScope, beneficiaries, perHead, height); err != nil {
			return nil, err
		}
		settled = append(settled, c.ID.Clone())
		e.emit(events.CampaignRewarded{
			ID:            c.ID.Clone(),
			Amount:        cloneBigInt(total),
			Beneficiaries: cloneAccounts(beneficiaries),
			Height:        height,
		})
	}
	if len(settled) == 0 {
		return nil, nil
	}
	if err := e.state.SetCampaignApprovedList(kept); err != nil {
		return nil, err
	}
	for _, id := range settled {
		if err := e.addToPayoutIndex(id); err != nil {
			return nil, err
		}
	}
	return settled, nil
}

// Allocate dispatches to Payment or Reward according to the configured
// topology. The per-campaign topology takes exactly one id.
func (e *Engine) Allocate(origin Origin, ids []ID, beneficiaries [][20]byte, perHead *big.Int) ([]ID, error) {
	if e == nil {
		return nil, errNilState
	}
	if e.params.Topology == TopologySharedPool {
		return e.Reward(origin, ids, beneficiaries, perHead)
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("%w: payment takes exactly one campaign", ErrInvalidCampaignID)
	}
	if err := e.Payment(origin, ids[0], beneficiaries, perHead); err != nil {
		return nil, err
	}
	return []ID{ids[0].Clone()}, nil
}

// poolBudget is what the pool can commit to new rewards: its remaining budget
// less the rewards already owed to beneficiaries.
func (e *Engine) poolBudget() (*big.Int, error) {
	remaining, err := e.escrow().remainingBudget(e.PoolAccount())
	if err != nil {
		return nil, err
	}
	outstanding, err := e.state.CampaignOutstanding(PoolScope)
	if err != nil {
		return nil, err
	}
	for _, who := range outstanding {
		reward, ok, err := e.state.CampaignPendingReward(PoolScope, who)
		if err != nil {
			return nil, err
		}
		if ok && reward != nil && reward.Amount != nil {
			remaining.Sub(remaining, reward.Amount)
		}
	}
	if remaining.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return remaining, nil
}

// credit adds perHead to every beneficiary's pending reward in scope. The
// allocation height is restamped, so the lock restarts for the whole balance.
func (e *Engine) credit(scope ID, beneficiaries [][20]byte, perHead *big.Int, height uint64) error {
	outstanding, err := e.state.CampaignOutstanding(scope)
	if err != nil {
		return err
	}
	for _, who := range beneficiaries {
		reward, ok, err := e.state.CampaignPendingReward(scope, who)
		if err != nil {
			return err
		}
		current := big.NewInt(0)
		if ok && reward != nil {
			current = cloneBigInt(reward.Amount)
		}
		amount, err := checkedAdd(current, perHead)
		if err != nil {
			return err
		}
		if err := e.state.SetCampaignPendingReward(scope, who, &PendingReward{AllocatedAt: height, Amount: amount}); err != nil {
			return err
		}
		if !containsAccount(outstanding, who) {
			outstanding = append(outstanding, who)
		}
	}
	return e.state.SetCampaignOutstanding(scope, outstanding)
}

func (e *Engine) addToPayoutIndex(id ID) error {
	index, err := e.state.CampaignPayoutIndex()
	if err != nil {
		return err
	}
	if containsID(index, id) {
		return nil
	}
	return e.state.SetCampaignPayoutIndex(append(index, id.Clone()))
}

func allocationTotal(beneficiaries [][20]byte, perHead *big.Int) (*big.Int, error) {
	if len(beneficiaries) == 0 {
		return nil, ErrNoBeneficiaries
	}
	if perHead == nil || perHead.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return checkedMul(perHead, uint64(len(beneficiaries)))
}

func containsAccount(list [][20]byte, who [20]byte) bool {
	for _, existing := range list {
		if existing == who {
			return true
		}
	}
	return false
}

func cloneAccounts(in [][20]byte) [][20]byte {
	if len(in) == 0 {
		return nil
	}
	out := make([][20]byte, len(in))
	copy(out, in)
	return out
}
