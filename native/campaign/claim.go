package campaign

import (
	"fmt"
	"math/big"

	"taskchain/core/events"
)

// Claim pays amount of the beneficiary's pending reward once the claim
// duration has passed since the most recent allocation. The call may come from
// the reward authority or from the beneficiary itself. In the shared-pool
// topology id is ignored.
func (e *Engine) Claim(origin Origin, id ID, beneficiary [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.auth.IsRewardAuthority(origin) && !origin.IsSigner(beneficiary) {
		return ErrBadOrigin
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	perCampaign := e.params.Topology == TopologyPerCampaign
	if perCampaign && len(id) == 0 {
		return ErrInvalidCampaignID
	}
	scope := e.scope(id)
	reward, ok, err := e.state.CampaignPendingReward(scope, beneficiary)
	if err != nil {
		return err
	}
	if !ok || reward == nil {
		return ErrUserNotReward
	}
	pending := cloneBigInt(reward.Amount)
	if amount.Cmp(pending) > 0 {
		return fmt.Errorf("%w: requested %s, pending %s", ErrRemainingBalanceTooLow, amount, pending)
	}
	now := e.height()
	if now < reward.ClaimableAt(e.params.ClaimDuration) {
		return fmt.Errorf("%w: claimable at height %d, current %d", ErrCanNotClaim, reward.ClaimableAt(e.params.ClaimDuration), now)
	}

	left := new(big.Int).Sub(pending, amount)
	if err := e.state.SetCampaignPendingReward(scope, beneficiary, &PendingReward{AllocatedAt: reward.AllocatedAt, Amount: left}); err != nil {
		return err
	}
	outstanding, err := e.state.CampaignOutstanding(scope)
	if err != nil {
		return err
	}
	if left.Sign() == 0 {
		kept := outstanding[:0]
		for _, who := range outstanding {
			if who != beneficiary {
				kept = append(kept, who)
			}
		}
		outstanding = kept
		if err := e.state.SetCampaignOutstanding(scope, outstanding); err != nil {
			return err
		}
	}
	// The escrow account stays alive while anyone in scope is still owed.
	// Only the claim that settles a per-campaign account may reap it; the pool
	// also holds slashed bonds and is always kept alive.
	stillOwed := left.Sign() > 0 || len(outstanding) > 0
	keepAlive := !perCampaign || stillOwed
	if err := e.escrow().pay(e.CampaignAccount(scope), beneficiary, amount, keepAlive); err != nil {
		return fmt.Errorf("pay claim: %w", err)
	}

	var eventID []byte
	if perCampaign {
		eventID = scope.Clone()
	}
	e.emit(events.CampaignClaimed{ID: eventID, Beneficiary: beneficiary, Amount: cloneBigInt(amount), Remaining: cloneBigInt(left)})

	if stillOwed {
		return nil
	}
	return e.settle(scope)
}

// settle runs once no beneficiary has anything left to claim in scope.
func (e *Engine) settle(scope ID) error {
	if e.params.Topology == TopologySharedPool {
		return e.state.SetCampaignPayoutIndex(nil)
	}
	index, err := e.state.CampaignPayoutIndex()
	if err != nil {
		return err
	}
	if err := e.state.SetCampaignPayoutIndex(removeID(index, scope)); err != nil {
		return err
	}
	c, ok, err := e.state.CampaignGet(scope)
	if err != nil {
		return err
	}
	if !ok || c == nil {
		return nil
	}
	if err := e.store().remove(c.ID); err != nil {
		return err
	}
	refunded := big.NewInt(0)
	if e.params.RefundOnSettle {
		refunded, err = e.escrow().drain(e.CampaignAccount(c.ID), c.Client)
		if err != nil {
			return err
		}
	}
	e.emit(events.CampaignSettled{ID: c.ID.Clone(), Client: c.Client, Refunded: refunded})
	return nil
}
