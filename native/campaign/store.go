package campaign

import (
	"fmt"
	"math/big"
)

// campaignStore owns campaign records and id allocation. It never moves
// funds.
type campaignStore struct {
	state    engineState
	strategy IDStrategy
}

func (s campaignStore) get(id ID) (*Campaign, error) {
	if s.state == nil {
		return nil, errNilState
	}
	c, ok, err := s.state.CampaignGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || c == nil {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

// nextID resolves the identifier a new campaign will be stored under without
// advancing the sequence.
func (s campaignStore) nextID(requested ID) (ID, error) {
	switch s.strategy {
	case IDStrategySequence:
		if len(requested) > 0 {
			return nil, fmt.Errorf("%w: sequence strategy assigns ids", ErrInvalidCampaignID)
		}
		seq, err := s.state.CampaignSequence()
		if err != nil {
			return nil, err
		}
		return SequenceID(seq), nil
	case IDStrategyClient:
		if len(requested) == 0 || len(requested) > MaxIDLength {
			return nil, fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidCampaignID, MaxIDLength)
		}
		_, exists, err := s.state.CampaignGet(requested)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateCampaign
		}
		// A settled id still owns its escrow bookkeeping until every reward
		// under it has been claimed.
		index, err := s.state.CampaignPayoutIndex()
		if err != nil {
			return nil, err
		}
		if containsID(index, requested) {
			return nil, fmt.Errorf("%w: rewards still outstanding", ErrDuplicateCampaign)
		}
		owed, err := s.state.CampaignOutstanding(requested)
		if err != nil {
			return nil, err
		}
		if len(owed) > 0 {
			return nil, fmt.Errorf("%w: rewards still outstanding", ErrDuplicateCampaign)
		}
		return requested.Clone(), nil
	default:
		return nil, fmt.Errorf("campaign: invalid id strategy %d", s.strategy)
	}
}

// create stores a pending campaign under id and advances the sequence when
// the sequence strategy is in use.
func (s campaignStore) create(id ID, client [20]byte, value, bond *big.Int, height uint64) (*Campaign, error) {
	c := &Campaign{
		ID:        id.Clone(),
		Client:    client,
		Value:     cloneBigInt(value),
		Bond:      cloneBigInt(bond),
		BondState: BondReserved,
		Status:    StatusPending,
		CreatedAt: height,
		Allocated: big.NewInt(0),
	}
	if s.strategy == IDStrategySequence {
		seq, ok := id.Sequence()
		if !ok {
			return nil, ErrInvalidCampaignID
		}
		if seq == ^uint64(0) {
			return nil, ErrArithmeticOverflow
		}
		if err := s.state.SetCampaignSequence(seq + 1); err != nil {
			return nil, err
		}
	}
	if err := s.state.CampaignPut(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s campaignStore) put(c *Campaign) error {
	if s.state == nil {
		return errNilState
	}
	return s.state.CampaignPut(c)
}

func (s campaignStore) remove(id ID) error {
	if s.state == nil {
		return errNilState
	}
	return s.state.CampaignDelete(id)
}
