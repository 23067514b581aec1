package campaign

import (
	"math/big"

	"taskchain/core/events"
)

// Create registers a campaign funded by the signing client. The bond is
// reserved and value moves into the campaign's escrow account. With the
// sequence strategy id must be empty; the assigned id is returned.
func (e *Engine) Create(origin Origin, id ID, value *big.Int) (ID, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	client, ok := origin.Signer()
	if !ok {
		return nil, ErrBadOrigin
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if value.Cmp(MaxBalance) > 0 {
		return nil, ErrArithmeticOverflow
	}
	store := e.store()
	campaignID, err := store.nextID(id)
	if err != nil {
		return nil, err
	}
	escrow := e.escrow()
	account := e.CampaignAccount(campaignID)
	if e.params.IDStrategy == IDStrategyClient && e.params.Topology == TopologyPerCampaign {
		if err := escrow.requireEmpty(account); err != nil {
			return nil, err
		}
	}
	bond, err := escrow.reserveBond(client, value)
	if err != nil {
		return nil, err
	}
	if err := escrow.fundCampaignAccount(client, account, value); err != nil {
		return nil, err
	}
	c, err := store.create(campaignID, client, value, bond, e.height())
	if err != nil {
		return nil, err
	}
	e.emit(events.CampaignCreated{ID: c.ID.Clone(), Client: client, Value: cloneBigInt(c.Value), Bond: cloneBigInt(c.Bond)})
	e.emit(events.CampaignDeposited{ID: c.ID.Clone(), Client: client, Account: account, Amount: cloneBigInt(c.Value)})
	return c.ID.Clone(), nil
}
