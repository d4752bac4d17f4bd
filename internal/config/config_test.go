package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/radixcore/engine/internal/config"
	"github.com/radixcore/engine/internal/substate"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should be valid: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Moniker != "radix-engine" {
		t.Errorf("expected moniker 'radix-engine', got %q", cfg.Moniker)
	}
	if cfg.Storage.Backend != "pebble" {
		t.Errorf("expected backend 'pebble', got %q", cfg.Storage.Backend)
	}
	if cfg.Fee.CostUnitLimit != 100_000_000 {
		t.Errorf("expected cost_unit_limit 100000000, got %d", cfg.Fee.CostUnitLimit)
	}
	if cfg.Wasm.MaxCallDepth != 16 {
		t.Errorf("expected max_call_depth 16, got %d", cfg.Wasm.MaxCallDepth)
	}
}

func TestValidateRejectsEmptyMoniker(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Moniker = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("should reject empty moniker")
	}
}

func TestValidateRejectsInvalidBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatal("should reject invalid storage backend")
	}
}

func TestValidateRejectsZeroCostUnitLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fee.CostUnitLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("should reject zero fee.cost_unit_limit")
	}
}

func TestValidateRejectsUnparseableCostUnitPrice(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fee.CostUnitPrice = "not-a-decimal"
	if err := cfg.Validate(); err == nil {
		t.Fatal("should reject unparseable fee.cost_unit_price")
	}
}

func TestValidateRejectsZeroMaxCallDepth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Wasm.MaxCallDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("should reject zero wasm.max_call_depth")
	}
}

func TestLoadFileFromTOML(t *testing.T) {
	tomlContent := `
moniker = "my-node"
chain_id = "engine-main"

[storage]
db_path = "data/mystore"
backend = "pebble"

[fee]
cost_unit_limit = 50000000
cost_unit_price = "0.0000001"

[wasm]
max_memory_pages = 2048
max_call_depth = 8

[telemetry]
enabled = true
addr = "0.0.0.0:9100"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Moniker != "my-node" {
		t.Errorf("expected moniker 'my-node', got %q", cfg.Moniker)
	}
	if cfg.ChainID != "engine-main" {
		t.Errorf("expected chain_id 'engine-main', got %q", cfg.ChainID)
	}
	if cfg.Storage.DBPath != "data/mystore" {
		t.Errorf("expected db_path 'data/mystore', got %q", cfg.Storage.DBPath)
	}
	if cfg.Fee.CostUnitLimit != 50000000 {
		t.Errorf("expected cost_unit_limit 50000000, got %d", cfg.Fee.CostUnitLimit)
	}
	if cfg.Wasm.MaxMemoryPages != 2048 {
		t.Errorf("expected max_memory_pages 2048, got %d", cfg.Wasm.MaxMemoryPages)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("expected telemetry enabled")
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	tomlContent := `
moniker = "original"
chain_id = "test"

[storage]
db_path = "data/substate"
backend = "pebble"

[fee]
cost_unit_limit = 1000000
cost_unit_price = "0.0000001"

[wasm]
max_memory_pages = 1024
max_call_depth = 8
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(tomlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ENGINE_MONIKER", "env-override")
	t.Setenv("ENGINE_FEE_COST_UNIT_LIMIT", "200")
	t.Setenv("ENGINE_TELEMETRY_ENABLED", "true")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Moniker != "env-override" {
		t.Errorf("env override failed for moniker: got %q", cfg.Moniker)
	}
	if cfg.Fee.CostUnitLimit != 200 {
		t.Errorf("env override failed for fee.cost_unit_limit: got %d", cfg.Fee.CostUnitLimit)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("env override failed for telemetry.enabled")
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	_, err := config.LoadFile("/nonexistent/config.toml")
	if err == nil {
		t.Fatal("should reject missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("{{invalid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = config.LoadFile(path)
	if err == nil {
		t.Fatal("should reject invalid TOML")
	}
}

func TestCostTableMatchesFeeConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	ct := cfg.Fee.CostTable()
	if ct.InvokeFunction != cfg.Fee.InvokeFunction {
		t.Errorf("expected InvokeFunction %d, got %d", cfg.Fee.InvokeFunction, ct.InvokeFunction)
	}
	if ct.SubstateWrite != cfg.Fee.SubstateWrite {
		t.Errorf("expected SubstateWrite %d, got %d", cfg.Fee.SubstateWrite, ct.SubstateWrite)
	}
}

func TestUnitPriceParsesCostUnitPrice(t *testing.T) {
	cfg := config.DefaultConfig()
	price := cfg.Fee.UnitPrice()
	if price.IsZero() {
		t.Fatal("expected non-zero unit price")
	}
}

// --- Genesis ---

func TestDefaultGenesisIsValid(t *testing.T) {
	gen := config.DefaultGenesis("engine-devnet")
	if err := gen.Validate(); err != nil {
		t.Fatalf("DefaultGenesis should be valid: %v", err)
	}
}

func TestGenesisValidateRejectsEmptyChainID(t *testing.T) {
	gen := config.DefaultGenesis("engine-devnet")
	gen.ChainID = ""
	if err := gen.Validate(); err == nil {
		t.Fatal("should reject empty chain_id")
	}
}

func TestGenesisValidateRejectsUnparseableSupply(t *testing.T) {
	gen := config.DefaultGenesis("engine-devnet")
	gen.FaucetSupply = "not-a-decimal"
	if err := gen.Validate(); err == nil {
		t.Fatal("should reject unparseable faucet_supply")
	}
}

func TestLoadGenesisMissingFile(t *testing.T) {
	_, err := config.LoadGenesis("/nonexistent/genesis.json")
	if err == nil {
		t.Fatal("should reject missing file")
	}
}

func TestLoadGenesisFromJSON(t *testing.T) {
	genesisJSON := `{
  "chain_id": "engine-test",
  "fee_resource_seed": "0000000000000000000000000000000000000000000000000000000000000001",
  "faucet_seed": "0000000000000000000000000000000000000000000000000000000000000002",
  "faucet_supply": "500000"
}`
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	if err := os.WriteFile(path, []byte(genesisJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	gen, err := config.LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if gen.ChainID != "engine-test" {
		t.Errorf("expected chain_id 'engine-test', got %q", gen.ChainID)
	}
	if gen.FaucetSupply != "500000" {
		t.Errorf("expected faucet_supply '500000', got %q", gen.FaucetSupply)
	}
}

func TestGenesisApplySeedsStore(t *testing.T) {
	gen := config.DefaultGenesis("engine-devnet")
	store := substate.NewMemStore()

	result, err := gen.Apply(store)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.FeeResource.IsZero() {
		t.Fatal("expected non-zero fee resource address")
	}
	if result.FaucetComponent.IsZero() {
		t.Fatal("expected non-zero faucet component address")
	}

	rmOut, err := store.Get(substate.ResourceManagerId(result.FeeResource))
	if err != nil {
		t.Fatalf("get resource manager: %v", err)
	}
	if rmOut.Substate.ResourceManager.Metadata["symbol"] != "XRD" {
		t.Errorf("expected symbol XRD, got %q", rmOut.Substate.ResourceManager.Metadata["symbol"])
	}

	vaultOut, err := store.Get(substate.VaultId(result.FaucetVault))
	if err != nil {
		t.Fatalf("get faucet vault: %v", err)
	}
	if vaultOut.Substate.VaultLiquid.Amount.IsZero() {
		t.Fatal("expected faucet vault to hold a non-zero balance")
	}

	if !store.IsRoot(substate.ComponentInfoId(result.FaucetComponent)) {
		t.Fatal("expected faucet component to be a root")
	}

	sysOut, err := store.Get(substate.SystemId())
	if err != nil {
		t.Fatalf("get system: %v", err)
	}
	if sysOut.Substate.SystemEpoch != 0 {
		t.Errorf("expected epoch 0, got %d", sysOut.Substate.SystemEpoch)
	}
}

func TestGenesisApplyRejectsBadSeed(t *testing.T) {
	gen := config.DefaultGenesis("engine-devnet")
	gen.FeeResourceSeed = "not-hex"
	store := substate.NewMemStore()
	if _, err := gen.Apply(store); err == nil {
		t.Fatal("should reject malformed fee_resource_seed")
	}
}
