package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/radixcore/engine/internal/config"
	"github.com/radixcore/engine/internal/crypto"
	"github.com/radixcore/engine/internal/substate"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [moniker]",
		Short: "Initialize an engine home: config, genesis, keys, and a seeded store",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}

	cmd.Flags().String("home", defaultHome(), "engine home directory")
	cmd.Flags().String("chain-id", "engine-devnet", "chain ID")

	return cmd
}

// wellKnownAddresses is written at init time so manifests have the
// genesis addresses (fee resource, faucet, account package) to hand.
type wellKnownAddresses struct {
	FeeResource     string `json:"fee_resource"`
	AccountPackage  string `json:"account_package"`
	FaucetComponent string `json:"faucet_component"`
}

func runInit(cmd *cobra.Command, args []string) error {
	moniker := args[0]
	homeDir, _ := cmd.Flags().GetString("home")
	chainID, _ := cmd.Flags().GetString("chain-id")

	dirs := []string{
		homeDir,
		filepath.Join(homeDir, "data"),
		filepath.Join(homeDir, "packages"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	pubKey, privKey, err := crypto.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}
	keyPath := filepath.Join(homeDir, "node_key.json")
	if err := writeNodeKey(keyPath, privKey, pubKey); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Moniker = moniker
	cfg.ChainID = chainID
	cfg.Storage.DBPath = filepath.Join(homeDir, "data", "substate")
	configPath := filepath.Join(homeDir, "config.toml")
	if err := writeConfig(configPath, cfg); err != nil {
		return err
	}

	gen := config.DefaultGenesis(chainID)
	genesisPath := filepath.Join(homeDir, "genesis.json")
	if err := writeGenesis(genesisPath, gen); err != nil {
		return err
	}

	// Seed the store so the first `run` has a fee resource and a funded
	// faucet to lock fees against.
	store, err := substate.OpenPebbleStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	result, err := gen.Apply(store)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	addrs := wellKnownAddresses{
		FeeResource:     result.FeeResource.String(),
		AccountPackage:  result.AccountPackage.String(),
		FaucetComponent: result.FaucetComponent.String(),
	}
	addrData, err := json.MarshalIndent(addrs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}
	if err := os.WriteFile(filepath.Join(homeDir, "addresses.json"), addrData, 0o644); err != nil {
		return fmt.Errorf("write addresses: %w", err)
	}

	fmt.Printf("Initialized engine home\n")
	fmt.Printf("  Home:            %s\n", homeDir)
	fmt.Printf("  Chain:           %s\n", chainID)
	fmt.Printf("  Moniker:         %s\n", moniker)
	fmt.Printf("  Fee resource:    %s\n", addrs.FeeResource)
	fmt.Printf("  Account package: %s\n", addrs.AccountPackage)
	fmt.Printf("  Faucet:          %s\n", addrs.FaucetComponent)
	fmt.Printf("\nRun a manifest with: enginectl run manifest.json --home %s\n", homeDir)

	return nil
}

func writeNodeKey(path string, privKey crypto.PrivateKey, pubKey crypto.PublicKey) error {
	kf := nodeKeyFile{
		PrivateKey: []byte(privKey),
		PublicKey:  []byte(pubKey),
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal node key: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write node key: %w", err)
	}
	return nil
}

func writeConfig(path string, cfg *config.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func writeGenesis(path string, gen *config.GenesisDoc) error {
	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}
