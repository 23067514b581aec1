package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "taskchain/core/errors"
	"taskchain/core/events"
	"taskchain/core/state"
	"taskchain/native/balances"
	"taskchain/native/campaign"
	"taskchain/observability"
	"taskchain/observability/metrics"
	"taskchain/storage"
)

const moduleName = "campaign"

var (
	ErrNilDatabase   = errors.New("runtime: database required")
	ErrHeightRegress = errors.New("runtime: block height must not decrease")
	ErrNotRoot       = errors.New("runtime: root origin required")
)

// Config wires a Runtime.
type Config struct {
	Params             campaign.Params
	ExistentialDeposit *big.Int
	// Emitter receives the events of committed calls. Nil discards them.
	Emitter events.Emitter
	Logger  *slog.Logger
	// AllowMigrate opens a store whose schema version differs from
	// state.StateVersion.
	AllowMigrate bool
}

// Runtime applies campaign calls to a database one at a time. Each call runs
// against a write overlay that is committed only when the call succeeds, so a
// failed call leaves neither state nor events behind.
type Runtime struct {
	mu      sync.Mutex
	db      storage.Database
	params  campaign.Params
	ed      *big.Int
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New validates cfg and returns a runtime over db.
func New(db storage.Database, cfg Config) (*Runtime, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	params := cfg.Params
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ed := big.NewInt(balances.DefaultExistentialDeposit)
	if cfg.ExistentialDeposit != nil {
		if cfg.ExistentialDeposit.Sign() < 0 {
			return nil, fmt.Errorf("runtime: existential deposit must not be negative")
		}
		ed = new(big.Int).Set(cfg.ExistentialDeposit)
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureVersion(db, cfg.AllowMigrate); err != nil {
		return nil, err
	}
	return &Runtime{
		db:      db,
		params:  params,
		ed:      ed,
		emitter: emitter,
		logger:  logger.With(slog.String("module", moduleName)),
		tracer:  otel.Tracer("taskchain/core/runtime"),
	}, nil
}

func ensureVersion(db storage.Database, allowMigrate bool) error {
	cache := storage.NewCacheDB(db)
	if err := state.NewManager(cache).EnsureStateVersion(allowMigrate); err != nil {
		cache.Discard()
		return err
	}
	return cache.Write()
}

// Params returns the normalized engine parameters.
func (r *Runtime) Params() campaign.Params { return r.params }

// call bundles the per-call view of state.
type call struct {
	manager *state.Manager
	ledger  *balances.Ledger
	engine  *campaign.Engine
	buffer  *events.Buffer
	height  uint64
}

func (r *Runtime) newCall(db storage.Database) (*call, error) {
	manager := state.NewManager(db)
	height, err := manager.BlockHeight()
	if err != nil {
		return nil, fmt.Errorf("load height: %w", err)
	}
	c := &call{
		manager: manager,
		ledger:  balances.NewLedger(manager, r.ed),
		buffer:  events.NewBuffer(),
		height:  height,
	}
	c.engine = campaign.NewEngine(r.params)
	c.engine.SetState(manager)
	c.engine.SetLedger(c.ledger)
	c.engine.SetAuthority(campaign.NewRoleAuthority(manager))
	c.engine.SetEmitter(c.buffer)
	c.engine.SetHeightFunc(func() uint64 { return c.height })
	return c, nil
}

// apply runs fn inside a fresh overlay and commits it when fn succeeds.
func (r *Runtime) apply(ctx context.Context, method string, fn func(*call) error) error {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "campaign."+method,
		trace.WithAttributes(attribute.String("campaign.method", method)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.execute(ctx, fn, span)
	observability.ModuleMetrics().Observe(moduleName, method, errorReason(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "campaign call failed",
			slog.String("method", method),
			slog.Any("error", err))
		return err
	}
	span.SetStatus(codes.Ok, "committed")
	r.logger.DebugContext(ctx, "campaign call committed",
		slog.String("method", method),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Runtime) execute(ctx context.Context, fn func(*call) error, span trace.Span) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cache := storage.NewCacheDB(r.db)
	c, err := r.newCall(cache)
	if err != nil {
		cache.Discard()
		return err
	}
	span.SetAttributes(attribute.Int64("chain.height", int64(c.height)))
	if err := fn(c); err != nil {
		cache.Discard()
		c.buffer.Reset()
		return err
	}
	if err := cache.Write(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed := c.buffer.Events()
	c.buffer.Flush(r.emitter)
	r.record(c, committed)
	return nil
}

// record updates metrics from the committed call.
func (r *Runtime) record(c *call, committed []events.Event) {
	domain := metrics.Campaign()
	for _, evt := range committed {
		observability.Events().RecordEvent(evt.EventType())
		switch e := evt.(type) {
		case events.CampaignCreated:
			domain.RecordCreated()
		case events.CampaignClaimed:
			domain.RecordClaim(e.Amount)
		case events.CampaignSettled, events.CampaignRewarded:
			domain.RecordSettled(1)
		}
	}
	domain.SetHeight(c.height)
	view, err := r.newCall(r.db)
	if err != nil {
		return
	}
	approved, err := view.engine.ApprovedCampaigns()
	if err != nil {
		return
	}
	index, err := view.engine.PayoutIndex()
	if err != nil {
		return
	}
	pool, err := view.ledger.FreeBalance(view.engine.PoolAccount())
	if err != nil {
		return
	}
	domain.SetSnapshot(len(approved), len(index), pool)
}

// view runs a read-only fn against committed state.
func (r *Runtime) view(fn func(*call) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.newCall(r.db)
	if err != nil {
		return err
	}
	return fn(c)
}

// Create escrows value for a new campaign owned by the signed origin.
func (r *Runtime) Create(ctx context.Context, origin campaign.Origin, id campaign.ID, value *big.Int) (campaign.ID, error) {
	var created campaign.ID
	err := r.apply(ctx, "create", func(c *call) error {
		out, err := c.engine.Create(origin, id, value)
		created = out
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Reject refunds and removes a pending campaign.
func (r *Runtime) Reject(ctx context.Context, origin campaign.Origin, id campaign.ID) error {
	return r.apply(ctx, "reject", func(c *call) error {
		return c.engine.Reject(origin, id)
	})
}

// Approve approves a pending campaign and slashes its bond.
func (r *Runtime) Approve(ctx context.Context, origin campaign.Origin, id campaign.ID) error {
	return r.apply(ctx, "approve", func(c *call) error {
		return c.engine.Approve(origin, id)
	})
}

// Allocate credits perHead to every beneficiary from the named campaigns and
// returns the ids that were paid out.
func (r *Runtime) Allocate(ctx context.Context, origin campaign.Origin, ids []campaign.ID, beneficiaries [][20]byte, perHead *big.Int) ([]campaign.ID, error) {
	var settled []campaign.ID
	err := r.apply(ctx, "allocate", func(c *call) error {
		out, err := c.engine.Allocate(origin, ids, beneficiaries, perHead)
		settled = out
		return err
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// Claim withdraws amount of the beneficiary's unlocked reward.
func (r *Runtime) Claim(ctx context.Context, origin campaign.Origin, id campaign.ID, beneficiary [20]byte, amount *big.Int) error {
	return r.apply(ctx, "claim", func(c *call) error {
		return c.engine.Claim(origin, id, beneficiary, amount)
	})
}

// Endow mints amount into who. Only root may mint.
func (r *Runtime) Endow(ctx context.Context, origin campaign.Origin, who [20]byte, amount *big.Int) error {
	return r.apply(ctx, "endow", func(c *call) error {
		if !origin.IsRoot() {
			return ErrNotRoot
		}
		if amount == nil || amount.Sign() <= 0 {
			return coreerrors.ErrInvalidAmount
		}
		if err := c.ledger.DepositCreating(who, amount); err != nil {
			return err
		}
		issuance, err := c.ledger.TotalIssuance()
		if err != nil {
			return err
		}
		c.buffer.Emit(events.BalanceEndowed{Account: who, Amount: new(big.Int).Set(amount), Issuance: issuance})
		return nil
	})
}

// GrantRole assigns a campaign authority role to addr. Only root may grant.
func (r *Runtime) GrantRole(ctx context.Context, origin campaign.Origin, role string, addr [20]byte) error {
	return r.apply(ctx, "grant_role", func(c *call) error {
		if !origin.IsRoot() {
			return ErrNotRoot
		}
		if err := checkRole(role); err != nil {
			return err
		}
		return c.manager.SetRole(role, addr[:])
	})
}

// RevokeRole removes a campaign authority role from addr.
func (r *Runtime) RevokeRole(ctx context.Context, origin campaign.Origin, role string, addr [20]byte) error {
	return r.apply(ctx, "revoke_role", func(c *call) error {
		if !origin.IsRoot() {
			return ErrNotRoot
		}
		if err := checkRole(role); err != nil {
			return err
		}
		return c.manager.RemoveRole(role, addr[:])
	})
}

func checkRole(role string) error {
	switch role {
	case campaign.RoleRejecter, campaign.RoleApprover, campaign.RoleRewarder:
		return nil
	default:
		return fmt.Errorf("runtime: unknown role %q", role)
	}
}

// SetHeight moves the chain to height. Heights never decrease.
func (r *Runtime) SetHeight(ctx context.Context, height uint64) error {
	return r.apply(ctx, "set_height", func(c *call) error {
		if height < c.height {
			return fmt.Errorf("%w: %d < %d", ErrHeightRegress, height, c.height)
		}
		c.height = height
		return c.manager.SetBlockHeight(height)
	})
}

// AdvanceHeight moves the chain forward by blocks and returns the new height.
func (r *Runtime) AdvanceHeight(ctx context.Context, blocks uint64) (uint64, error) {
	var next uint64
	err := r.apply(ctx, "advance_height", func(c *call) error {
		next = c.height + blocks
		if next < c.height {
			return campaign.ErrArithmeticOverflow
		}
		c.height = next
		return c.manager.SetBlockHeight(next)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Height returns the committed block height.
func (r *Runtime) Height() (uint64, error) {
	var height uint64
	err := r.view(func(c *call) error {
		height = c.height
		return nil
	})
	return height, err
}

// Campaign returns the stored campaign.
func (r *Runtime) Campaign(id campaign.ID) (*campaign.Campaign, error) {
	var out *campaign.Campaign
	err := r.view(func(c *call) error {
		var err error
		out, err = c.engine.Campaign(id)
		return err
	})
	return out, err
}

// PendingReward returns the beneficiary's pending reward in the campaign's
// scope. Unknown beneficiaries report a zero reward.
func (r *Runtime) PendingReward(id campaign.ID, beneficiary [20]byte) (*campaign.PendingReward, error) {
	var out *campaign.PendingReward
	err := r.view(func(c *call) error {
		var err error
		out, err = c.engine.PendingReward(id, beneficiary)
		return err
	})
	return out, err
}

// Beneficiaries lists the accounts still owed a reward under the campaign.
func (r *Runtime) Beneficiaries(id campaign.ID) ([][20]byte, error) {
	var out [][20]byte
	err := r.view(func(c *call) error {
		var err error
		out, err = c.engine.Beneficiaries(id)
		return err
	})
	return out, err
}

// PayoutIndex lists campaigns with unclaimed rewards.
func (r *Runtime) PayoutIndex() ([]campaign.ID, error) {
	var out []campaign.ID
	err := r.view(func(c *call) error {
		var err error
		out, err = c.engine.PayoutIndex()
		return err
	})
	return out, err
}

// ApprovedCampaigns lists approved, unsettled campaigns in approval order.
func (r *Runtime) ApprovedCampaigns() ([]campaign.ID, error) {
	var out []campaign.ID
	err := r.view(func(c *call) error {
		var err error
		out, err = c.engine.ApprovedCampaigns()
		return err
	})
	return out, err
}

func (r *Runtime) FreeBalance(who [20]byte) (*big.Int, error) {
	var out *big.Int
	err := r.view(func(c *call) error {
		var err error
		out, err = c.ledger.FreeBalance(who)
		return err
	})
	return out, err
}

func (r *Runtime) ReservedBalance(who [20]byte) (*big.Int, error) {
	var out *big.Int
	err := r.view(func(c *call) error {
		var err error
		out, err = c.ledger.ReservedBalance(who)
		return err
	})
	return out, err
}

func (r *Runtime) TotalIssuance() (*big.Int, error) {
	var out *big.Int
	err := r.view(func(c *call) error {
		var err error
		out, err = c.ledger.TotalIssuance()
		return err
	})
	return out, err
}

// PoolAccount returns the module's shared pool account.
func (r *Runtime) PoolAccount() [20]byte {
	return campaign.NewEngine(r.params).PoolAccount()
}

// CampaignAccount returns the account escrowing the campaign's value.
func (r *Runtime) CampaignAccount(id campaign.ID) [20]byte {
	return campaign.NewEngine(r.params).CampaignAccount(id)
}
