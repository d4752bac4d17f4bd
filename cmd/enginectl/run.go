package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radixcore/engine/internal/config"
	"github.com/radixcore/engine/internal/executor"
	"github.com/radixcore/engine/internal/substate"
	"github.com/radixcore/engine/internal/telemetry"
	"github.com/radixcore/engine/internal/wasmhost"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [manifest.json]",
		Short: "Execute a transaction manifest against the store and print the receipt",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().String("home", defaultHome(), "engine home directory")
	cmd.Flags().Uint64("nonce", 0, "transaction nonce")

	return cmd
}

// engineEnv bundles everything a command needs to execute transactions.
type engineEnv struct {
	cfg      *config.Config
	store    substate.Store
	executor *executor.Executor
	logger   *zap.Logger

	close func()
}

func openEngine(homeDir string) (*engineEnv, error) {
	cfg, err := config.LoadFile(filepath.Join(homeDir, "config.toml"))
	if err != nil {
		return nil, err
	}

	mode := "production"
	if cfg.ChainID == "engine-devnet" {
		mode = "development"
	}
	logger, err := telemetry.NewLogger(mode)
	if err != nil {
		return nil, err
	}

	var store substate.Store
	closeFn := func() { _ = logger.Sync() }
	switch cfg.Storage.Backend {
	case "memory":
		store = substate.NewMemStore()
	default:
		ps, err := substate.OpenPebbleStore(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		store = ps
		closeFn = func() {
			_ = ps.Close()
			_ = logger.Sync()
		}
	}

	// An ephemeral (memory) store starts empty; seed it from the home's
	// genesis document so fees have something to lock against.
	if _, err := store.Get(substate.SystemId()); err == substate.ErrNotFound {
		gen, err := config.LoadGenesis(filepath.Join(homeDir, "genesis.json"))
		if err != nil {
			return nil, err
		}
		if _, err := gen.Apply(store); err != nil {
			return nil, err
		}
	}

	metrics := telemetry.NopMetrics()
	if cfg.Telemetry.Enabled {
		metrics = telemetry.NewMetrics("engine")
	}

	exec := executor.New(store, wasmhost.NewEngine(), cfg, logger, metrics)
	return &engineEnv{cfg: cfg, store: store, executor: exec, logger: logger, close: closeFn}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	homeDir, _ := cmd.Flags().GetString("home")
	nonce, _ := cmd.Flags().GetUint64("nonce")

	manifest, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	instructions, err := manifest.compile()
	if err != nil {
		return err
	}

	env, err := openEngine(homeDir)
	if err != nil {
		return err
	}
	defer env.close()

	limit := manifest.CostUnitLimit
	if limit == 0 {
		limit = env.cfg.Fee.CostUnitLimit
	}
	tx := &executor.Transaction{
		Header: executor.Header{
			Version:       executor.TransactionVersion,
			NetworkID:     env.cfg.ChainID,
			StartEpoch:    0,
			EndEpoch:      1_000_000,
			Nonce:         nonce,
			CostUnitLimit: limit,
			TipBps:        manifest.TipBps,
		},
		Instructions: instructions,
	}

	receipt := env.executor.Execute(tx)
	printReceipt(receipt)
	if receipt.Status != executor.StatusSucceeded {
		os.Exit(1)
	}
	return nil
}

func printReceipt(r *executor.Receipt) {
	fmt.Printf("Status: %s\n", r.Status)
	if r.Err != nil {
		fmt.Printf("Error:  %v\n", r.Err)
	}

	fmt.Printf("Fee:    %s consumed of %s cost units, %s locked, %s spent, %s refunded\n",
		fmt.Sprint(r.FeeSummary.CostUnitsConsumed),
		fmt.Sprint(r.FeeSummary.CostUnitLimit),
		r.FeeSummary.LockedFee.String(),
		r.FeeSummary.Spent.String(),
		r.FeeSummary.Refunded.String(),
	)

	for _, addr := range r.NewPackageAddresses {
		fmt.Printf("New package:   %s\n", addr.String())
	}
	for _, addr := range r.NewComponentAddresses {
		fmt.Printf("New component: %s\n", addr.String())
	}
	for _, addr := range r.NewResourceAddresses {
		fmt.Printf("New resource:  %s\n", addr.String())
	}

	for _, ev := range r.Events {
		fmt.Printf("Event: %s %s\n", ev.Kind, ev.Payload)
	}
	for _, log := range r.Logs {
		fmt.Printf("Log [%s]: %s\n", log.Level, log.Message)
	}
}

// readAddresses loads the well-known genesis addresses written at init.
func readAddresses(homeDir string) (*wellKnownAddresses, error) {
	data, err := os.ReadFile(filepath.Join(homeDir, "addresses.json"))
	if err != nil {
		return nil, fmt.Errorf("read addresses (did you run init?): %w", err)
	}
	var addrs wellKnownAddresses
	if err := json.Unmarshal(data, &addrs); err != nil {
		return nil, fmt.Errorf("parse addresses: %w", err)
	}
	return &addrs, nil
}
