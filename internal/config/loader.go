package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// LoadFile reads and parses a TOML config file, applies environment variable
// overrides, and validates the result.
// Config precedence (highest first): Environment variables → File → Defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse TOML: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies ENGINE_* environment variable overrides.
// Env var format: ENGINE_<SECTION>_<FIELD> (e.g., ENGINE_STORAGE_BACKEND).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGINE_MONIKER"); v != "" {
		cfg.Moniker = v
	}
	if v := os.Getenv("ENGINE_CHAIN_ID"); v != "" {
		cfg.ChainID = v
	}

	// Storage.
	if v := os.Getenv("ENGINE_STORAGE_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("ENGINE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	// Fee.
	if v := os.Getenv("ENGINE_FEE_COST_UNIT_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Fee.CostUnitLimit = uint32(n)
		}
	}
	if v := os.Getenv("ENGINE_FEE_COST_UNIT_PRICE"); v != "" {
		cfg.Fee.CostUnitPrice = v
	}

	// Wasm.
	if v := os.Getenv("ENGINE_WASM_MAX_MEMORY_PAGES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Wasm.MaxMemoryPages = uint32(n)
		}
	}
	if v := os.Getenv("ENGINE_WASM_MAX_CALL_DEPTH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Wasm.MaxCallDepth = uint32(n)
		}
	}

	// Telemetry.
	if v := os.Getenv("ENGINE_TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ENGINE_TELEMETRY_ADDR"); v != "" {
		cfg.Telemetry.Addr = v
	}
}
