package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/fee"
)

// Duration wraps time.Duration to support TOML string unmarshaling (e.g. "3s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML duration strings.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the engine's full runtime configuration: store backend
// selection, cost-table tuning, Wasm resource ceilings, and
// observability settings.
type Config struct {
	Moniker string `toml:"moniker"`
	ChainID string `toml:"chain_id"`

	Storage   StorageConfig   `toml:"storage"`
	Fee       FeeConfig       `toml:"fee"`
	Wasm      WasmConfig      `toml:"wasm"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// StorageConfig selects and configures the substate store backend.
type StorageConfig struct {
	DBPath  string `toml:"db_path"`
	Backend string `toml:"backend"` // "pebble" or "memory"
}

// FeeConfig tunes the per-transaction fee reserve and cost table.
type FeeConfig struct {
	CostUnitLimit uint32 `toml:"cost_unit_limit"`
	CostUnitPrice string `toml:"cost_unit_price"` // decimal string, fee-resource units per cost unit

	InvokeFunction  uint32 `toml:"invoke_function"`
	InvokeMethod    uint32 `toml:"invoke_method"`
	CreateNode      uint32 `toml:"create_node"`
	BorrowNode      uint32 `toml:"borrow_node"`
	SubstateRead    uint32 `toml:"substate_read"`
	SubstateWrite   uint32 `toml:"substate_write"`
	Decode          uint32 `toml:"decode"`
	Encode          uint32 `toml:"encode"`
	WasmInstruction uint32 `toml:"wasm_instruction"`
}

// WasmConfig bounds the resources a Wasm instance may consume.
type WasmConfig struct {
	MaxMemoryPages uint32 `toml:"max_memory_pages"` // 64 KiB pages
	MaxCallDepth   uint32 `toml:"max_call_depth"`
}

// TelemetryConfig holds observability parameters.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Moniker: "radix-engine",
		ChainID: "engine-devnet",
		Storage: StorageConfig{
			DBPath:  "data/substate",
			Backend: "pebble",
		},
		Fee: FeeConfig{
			CostUnitLimit:   100_000_000,
			CostUnitPrice:   "0.00000001",
			InvokeFunction:  10_000,
			InvokeMethod:    10_000,
			CreateNode:      1_000,
			BorrowNode:      500,
			SubstateRead:    1_000,
			SubstateWrite:   2_000,
			Decode:          1,
			Encode:          1,
			WasmInstruction: 1,
		},
		Wasm: WasmConfig{
			MaxMemoryPages: 4096, // 256 MiB
			MaxCallDepth:   16,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Addr:    "0.0.0.0:9090",
		},
	}
}

// Validate checks config for invalid values.
func (c *Config) Validate() error {
	if c.Moniker == "" {
		return errors.New("config: moniker must not be empty")
	}
	if c.ChainID == "" {
		return errors.New("config: chain_id must not be empty")
	}

	if c.Storage.DBPath == "" {
		return errors.New("config: storage.db_path must not be empty")
	}
	validBackends := map[string]bool{"pebble": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("config: storage.backend must be 'pebble' or 'memory', got %q", c.Storage.Backend)
	}

	if c.Fee.CostUnitLimit == 0 {
		return errors.New("config: fee.cost_unit_limit must be > 0")
	}
	if c.Fee.CostUnitPrice == "" {
		return errors.New("config: fee.cost_unit_price must not be empty")
	}

	if c.Wasm.MaxMemoryPages == 0 {
		return errors.New("config: wasm.max_memory_pages must be > 0")
	}
	if c.Wasm.MaxCallDepth == 0 {
		return errors.New("config: wasm.max_call_depth must be > 0")
	}
	if _, err := bnum.ParseDecimal(c.Fee.CostUnitPrice); err != nil {
		return fmt.Errorf("config: fee.cost_unit_price: %w", err)
	}

	return nil
}

// CostTable builds a fee.CostTable from the tuned tariffs in FeeConfig.
func (fc FeeConfig) CostTable() fee.CostTable {
	return fee.CostTable{
		InvokeFunction:  fc.InvokeFunction,
		InvokeMethod:    fc.InvokeMethod,
		CreateNode:      fc.CreateNode,
		BorrowNode:      fc.BorrowNode,
		SubstateRead:    fc.SubstateRead,
		SubstateWrite:   fc.SubstateWrite,
		Decode:          fc.Decode,
		Encode:          fc.Encode,
		WasmInstruction: fc.WasmInstruction,
	}
}

// UnitPrice parses CostUnitPrice into a Decimal. Validate must have
// already confirmed the string parses.
func (fc FeeConfig) UnitPrice() bnum.Decimal {
	p, _ := bnum.ParseDecimal(fc.CostUnitPrice)
	return p
}
