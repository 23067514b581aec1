package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"taskchain/config"
	"taskchain/core/events"
	"taskchain/core/runtime"
	"taskchain/core/types"
	"taskchain/crypto"
	"taskchain/native/campaign"
	"taskchain/observability"
	"taskchain/observability/logging"
	telemetry "taskchain/observability/otel"
	"taskchain/storage"
)

const (
	initCommand   = "init"
	runCommand    = "run"
	queryCommand  = "query"
	defaultConfig = "./config.toml"
)

// initTelemetry is replaced in tests.
var initTelemetry = telemetry.Init

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case initCommand:
		err = runInit(ctx, os.Args[2:], os.Stdout)
	case runCommand:
		err = runScenario(ctx, os.Args[2:], os.Stdout)
	case queryCommand:
		err = runQuery(ctx, os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: campaignd <command> [flags]

Commands:
  %s    create the config and data dir, granting configured authority roles
  %s     replay a YAML scenario against the data dir
  %s   print campaign, reward and balance state
`, initCommand, runCommand, queryCommand)
}

// node is an opened data dir with its runtime.
type node struct {
	cfg      *config.Config
	db       storage.Database
	rt       *runtime.Runtime
	logger   *slog.Logger
	shutdown func(context.Context) error

	// metricsFile is written with the prometheus snapshot on Close.
	metricsFile string
}

func openNode(ctx context.Context, configPath string, allowMigrate bool, out io.Writer) (*node, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service: "campaignd",
		Env:     cfg.Environment,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Writer:  logWriter(cfg),
	})
	shutdown, err := initTelemetry(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	fail := func(err error) (*node, error) {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := shutdown(stopCtx); stopErr != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", stopErr))
		}
		return nil, err
	}
	params, err := cfg.Campaign.Params()
	if err != nil {
		return fail(err)
	}
	ed, err := cfg.ExistentialDepositAmount()
	if err != nil {
		return fail(err)
	}
	db, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return fail(fmt.Errorf("open database: %w", err))
	}
	rt, err := runtime.New(db, runtime.Config{
		Params:             params,
		ExistentialDeposit: ed,
		Emitter:            eventPrinter{out: out},
		Logger:             logger,
		AllowMigrate:       allowMigrate,
	})
	if err != nil {
		db.Close()
		return fail(err)
	}
	return &node{cfg: cfg, db: db, rt: rt, logger: logger, shutdown: shutdown, metricsFile: cfg.MetricsFile}, nil
}

// logWriter sends logs to stderr unless a log file is configured, keeping
// stdout for command output.
func logWriter(cfg *config.Config) io.Writer {
	if strings.TrimSpace(cfg.LogFile) != "" {
		return nil
	}
	return os.Stderr
}

func (n *node) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if path := strings.TrimSpace(n.metricsFile); path != "" {
		if err := observability.WriteMetricsFile(path, prometheus.DefaultGatherer); err != nil {
			n.logger.Warn("write metrics failed", slog.String("path", path), slog.Any("error", err))
		}
	}
	if err := n.shutdown(ctx); err != nil {
		n.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
	n.db.Close()
}

func runInit(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(initCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the config file (created when missing)")
	allowMigrate := fs.Bool("allow-migrate", false, "Open a data dir with a mismatched state schema (manual migrations only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := openNode(ctx, *configPath, *allowMigrate, out)
	if err != nil {
		return err
	}
	defer n.Close()

	auth, err := n.cfg.Campaign.Authorities()
	if err != nil {
		return err
	}
	grants := []struct {
		role     string
		accounts [][20]byte
	}{
		{campaign.RoleRejecter, auth.Rejecters},
		{campaign.RoleApprover, auth.Approvers},
		{campaign.RoleRewarder, auth.Rewarders},
	}
	for _, grant := range grants {
		for _, who := range grant.accounts {
			if err := n.rt.GrantRole(ctx, campaign.RootOrigin(), grant.role, who); err != nil {
				return fmt.Errorf("grant %s: %w", grant.role, err)
			}
			n.logger.Info("granted campaign role",
				slog.String("role", grant.role),
				slog.String("account", crypto.AccountString(who)))
		}
	}
	params := n.rt.Params()
	return writeJSON(out, map[string]string{
		"dataDir":  n.cfg.DataDir,
		"backend":  n.cfg.Backend,
		"topology": params.Topology.String(),
		"pool":     crypto.MustNewAddress(crypto.ModulePrefix, poolBytes(n.rt)).String(),
	})
}

func poolBytes(rt *runtime.Runtime) []byte {
	pool := rt.PoolAccount()
	return pool[:]
}

func runScenario(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(runCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the config file")
	allowMigrate := fs.Bool("allow-migrate", false, "Open a data dir with a mismatched state schema (manual migrations only)")
	scenarioPath := fs.String("scenario", "", "Path to the YAML scenario to replay")
	metricsPath := fs.String("metrics", "", "Write prometheus metrics to this file on exit (overrides MetricsFile)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*scenarioPath) == "" {
		return fmt.Errorf("--scenario is required")
	}
	sc, err := LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	n, err := openNode(ctx, *configPath, *allowMigrate, out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*metricsPath) != "" {
		n.metricsFile = *metricsPath
	}
	defer n.Close()

	return Replay(ctx, n.rt, sc, func(res StepResult) {
		attrs := []any{slog.Int("step", res.Index), slog.String("op", res.Op)}
		if len(res.IDs) > 0 {
			ids := make([]string, len(res.IDs))
			for i, id := range res.IDs {
				ids[i] = id.String()
			}
			attrs = append(attrs, slog.String("ids", strings.Join(ids, ",")))
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("error", res.Err.Error()))
		}
		n.logger.Info("scenario step", attrs...)
	})
}

func runQuery(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(queryCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the config file")
	allowMigrate := fs.Bool("allow-migrate", false, "Open a data dir with a mismatched state schema (manual migrations only)")
	campaignID := fs.String("campaign", "", "Campaign id to inspect")
	account := fs.String("account", "", "Account whose balances and pending reward to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := openNode(ctx, *configPath, *allowMigrate, out)
	if err != nil {
		return err
	}
	defer n.Close()
	return query(n.rt, *campaignID, *account, out)
}

func query(rt *runtime.Runtime, rawID, rawAccount string, out io.Writer) error {
	report := map[string]any{}
	height, err := rt.Height()
	if err != nil {
		return err
	}
	report["height"] = height
	index, err := rt.PayoutIndex()
	if err != nil {
		return err
	}
	report["payoutIndex"] = idStrings(index)
	approved, err := rt.ApprovedCampaigns()
	if err != nil {
		return err
	}
	report["approved"] = idStrings(approved)
	issuance, err := rt.TotalIssuance()
	if err != nil {
		return err
	}
	report["totalIssuance"] = issuance.String()

	var id campaign.ID
	if strings.TrimSpace(rawID) != "" {
		if id, err = parseID(rawID, rt.Params().IDStrategy); err != nil {
			return err
		}
		c, err := rt.Campaign(id)
		if err != nil {
			return err
		}
		escrow, err := rt.FreeBalance(rt.CampaignAccount(id))
		if err != nil {
			return err
		}
		report["campaign"] = map[string]any{
			"id":        c.ID.String(),
			"client":    crypto.AccountString(c.Client),
			"value":     c.Value.String(),
			"bond":      c.Bond.String(),
			"bondState": c.BondState.String(),
			"status":    c.Status.String(),
			"createdAt": c.CreatedAt,
			"allocated": c.Allocated.String(),
			"escrow":    escrow.String(),
		}
	}
	if id != nil {
		owed, err := rt.Beneficiaries(id)
		if err != nil {
			return err
		}
		names := make([]string, len(owed))
		for i, who := range owed {
			names[i] = crypto.AccountString(who)
		}
		report["beneficiaries"] = names
	}
	if strings.TrimSpace(rawAccount) != "" {
		who, err := resolveAccount(rawAccount)
		if err != nil {
			return err
		}
		free, err := rt.FreeBalance(who)
		if err != nil {
			return err
		}
		reserved, err := rt.ReservedBalance(who)
		if err != nil {
			return err
		}
		entry := map[string]any{
			"address":  crypto.AccountString(who),
			"free":     free.String(),
			"reserved": reserved.String(),
		}
		if id != nil || rt.Params().Topology == campaign.TopologySharedPool {
			pending, err := rt.PendingReward(id, who)
			if err != nil {
				return err
			}
			entry["pending"] = pending.Amount.String()
			entry["claimableAt"] = pending.ClaimableAt(rt.Params().ClaimDuration)
		}
		report["account"] = entry
	}
	return writeJSON(out, report)
}

func idStrings(ids []campaign.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// eventPrinter writes committed events as JSON lines.
type eventPrinter struct {
	out io.Writer
}

type typedEvent interface {
	Event() *types.Event
}

func (p eventPrinter) Emit(evt events.Event) {
	if p.out == nil || evt == nil {
		return
	}
	payload := &types.Event{Type: evt.EventType()}
	if typed, ok := evt.(typedEvent); ok {
		payload = typed.Event()
	}
	if err := json.NewEncoder(p.out).Encode(payload); err != nil {
		slog.Warn("write event", slog.Any("error", err))
	}
}
