package campaign

import "errors"

var (
	errNilState  = errors.New("campaign: state not configured")
	errNilLedger = errors.New("campaign: ledger not configured")

	ErrBadOrigin                = errors.New("campaign: bad origin")
	ErrCampaignNotFound         = errors.New("campaign: campaign not found")
	ErrDuplicateCampaign        = errors.New("campaign: campaign already exists")
	ErrInvalidCampaignID        = errors.New("campaign: invalid campaign id")
	ErrInvalidAmount            = errors.New("campaign: amount must be positive")
	ErrNoBeneficiaries          = errors.New("campaign: no beneficiaries")
	ErrCampaignNotPending       = errors.New("campaign: campaign not pending")
	ErrNotApproved              = errors.New("campaign: campaign not approved")
	ErrNotEnoughBalanceForUsers = errors.New("campaign: not enough balance for users")
	ErrArithmeticOverflow       = errors.New("campaign: arithmetic overflow")
	ErrRemainingBalanceTooLow   = errors.New("campaign: remaining balance too low")
	ErrCanNotClaim              = errors.New("campaign: claim time lock not expired")
	ErrUserNotReward            = errors.New("campaign: user has no reward")
	ErrBondShortfall            = errors.New("campaign: reserved bond shortfall")
	ErrWrongTopology            = errors.New("campaign: operation not available in this topology")
)
