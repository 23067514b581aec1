package campaign

import (
	"fmt"

	"taskchain/core/events"
)

// Reject removes a pending campaign that has not paid out anything yet. The
// bond is released and the escrowed value is returned to the client.
func (e *Engine) Reject(origin Origin, id ID) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.auth.IsRejectAuthority(origin) {
		return ErrBadOrigin
	}
	store := e.store()
	c, err := store.get(id)
	if err != nil {
		return err
	}
	if c.Status != StatusPending {
		return ErrCampaignNotPending
	}
	if c.Allocated != nil && c.Allocated.Sign() > 0 {
		return fmt.Errorf("%w: rewards already allocated", ErrCampaignNotPending)
	}
	if err := store.remove(c.ID); err != nil {
		return err
	}
	escrow := e.escrow()
	if c.BondState == BondReserved {
		if _, err := escrow.unreserveBond(c.Client, c.Bond); err != nil {
			return err
		}
	}
	// Only the value this campaign escrowed goes back. Anything else held by
	// the account belongs to someone else.
	if err := escrow.pay(e.CampaignAccount(c.ID), c.Client, c.Value, false); err != nil {
		return fmt.Errorf("refund campaign value: %w", err)
	}
	e.emit(events.CampaignRejected{ID: c.ID.Clone(), Client: c.Client, Value: cloneBigInt(c.Value)})
	return nil
}

// Approve marks a pending campaign approved. Approval charges the client's
// bond: it is slashed and redeposited into the module pool account.
func (e *Engine) Approve(origin Origin, id ID) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.auth.IsApprovalAuthority(origin) {
		return ErrBadOrigin
	}
	store := e.store()
	c, err := store.get(id)
	if err != nil {
		return err
	}
	if c.Status != StatusPending {
		return ErrCampaignNotPending
	}
	var slashed = cloneBigInt(nil)
	sink := e.PoolAccount()
	if c.BondState == BondReserved {
		slashed, err = e.escrow().slashBond(c.Client, sink, c.Bond)
		if err != nil {
			return err
		}
		c.BondState = BondSlashed
	}
	c.Status = StatusApproved
	if err := store.put(c); err != nil {
		return err
	}
	approved, err := e.state.CampaignApprovedList()
	if err != nil {
		return err
	}
	if err := e.state.SetCampaignApprovedList(appendUniqueID(approved, c.ID)); err != nil {
		return err
	}
	e.emit(events.CampaignApproved{ID: c.ID.Clone()})
	if slashed.Sign() > 0 {
		e.emit(events.CampaignBondSlashed{ID: c.ID.Clone(), Client: c.Client, Sink: sink, Amount: slashed})
	}
	return nil
}
