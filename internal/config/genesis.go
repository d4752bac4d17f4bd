package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/resource"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
	"github.com/radixcore/engine/internal/substate"
)

// GenesisDoc describes the store state an engine instance starts from:
// the network's fee resource (the "XRD-equivalent" every transaction
// pays cost units in) and a faucet component pre-funded with it, so a
// freshly initialized store has something to lock fees against before
// any package is published.
type GenesisDoc struct {
	ChainID         string `json:"chain_id"`
	FeeResourceSeed string `json:"fee_resource_seed"` // hex seed, derives the fee ResourceAddress
	FaucetSeed      string `json:"faucet_seed"`       // hex seed, derives the faucet ComponentAddress
	FaucetSupply    string `json:"faucet_supply"`     // decimal string
}

// LoadGenesis reads and validates a genesis document from path.
func LoadGenesis(path string) (*GenesisDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read file: %w", err)
	}
	var gen GenesisDoc
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("genesis: parse JSON: %w", err)
	}
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	return &gen, nil
}

// DefaultGenesis returns the engine's baseline genesis document. The
// fee-resource seed is the zero hash so the derived address matches
// addressing.XRDResourceAddress, the protocol constant every native
// blueprint (and every other engine instance) agrees on.
func DefaultGenesis(chainID string) *GenesisDoc {
	return &GenesisDoc{
		ChainID:         chainID,
		FeeResourceSeed: "0000000000000000000000000000000000000000000000000000000000000000",
		FaucetSeed:      "0000000000000000000000000000000000000000000000000000000000000002",
		FaucetSupply:    "1000000000",
	}
}

// Validate checks the genesis document for structural validity.
func (g *GenesisDoc) Validate() error {
	if g.ChainID == "" {
		return errors.New("chain_id must not be empty")
	}
	if g.FeeResourceSeed == "" {
		return errors.New("fee_resource_seed must not be empty")
	}
	if g.FaucetSeed == "" {
		return errors.New("faucet_seed must not be empty")
	}
	if _, err := bnum.ParseDecimal(g.FaucetSupply); err != nil {
		return fmt.Errorf("faucet_supply: %w", err)
	}
	return nil
}

// GenesisResult reports the addresses Apply assigned.
type GenesisResult struct {
	FeeResource     addressing.ResourceAddress
	AccountPackage  addressing.PackageAddress
	FaucetComponent addressing.ComponentAddress
	FaucetVault     addressing.VaultId
}

// Apply seeds store with the genesis fee resource, the built-in
// Account package, and a faucet component holding the configured
// initial supply, plus the System substate at epoch 0.
func (g *GenesisDoc) Apply(store substate.Store) (*GenesisResult, error) {
	feeSeed, err := addressing.HashFromHex(g.FeeResourceSeed)
	if err != nil {
		return nil, fmt.Errorf("genesis: fee_resource_seed: %w", err)
	}
	faucetSeed, err := addressing.HashFromHex(g.FaucetSeed)
	if err != nil {
		return nil, fmt.Errorf("genesis: faucet_seed: %w", err)
	}
	supply, err := bnum.ParseDecimal(g.FaucetSupply)
	if err != nil {
		return nil, fmt.Errorf("genesis: faucet_supply: %w", err)
	}

	feeResource := addressing.NewResourceAddress(feeSeed, 0)
	rm := resource.NewFungibleResourceManager(feeResource, 18)
	rmSubstate := substate.Substate{
		Kind: substate.SubstateKindResourceManager,
		ResourceManager: &substate.ResourceManagerData{
			Granularity: rm.Granularity,
			TotalSupply: supply,
			Metadata:    map[string]string{"symbol": "XRD", "name": "Radix"},
			AccessRules: substate.AccessRulesData{Rules: map[string][]byte{
				"mint": resource.DenyAll().Marshal(),
				"burn": resource.DenyAll().Marshal(),
			}},
		},
	}
	rmID := substate.ResourceManagerId(feeResource)
	if err := store.Put(rmID, substate.OutputValue{Substate: rmSubstate, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put resource manager: %w", err)
	}
	store.SetRoot(rmID)

	// The Account package is a native blueprint: a Package substate with
	// no code dispatches in the kernel instead of instantiating Wasm.
	accountPackage := addressing.NewPackageAddress(faucetSeed, 1)
	pkgID := substate.PackageId(accountPackage)
	pkgSubstate := substate.Substate{
		Kind:    substate.SubstateKindPackage,
		Package: &substate.PackageData{BlueprintABIs: map[string][]byte{}},
	}
	if err := store.Put(pkgID, substate.OutputValue{Substate: pkgSubstate, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put account package: %w", err)
	}
	store.SetRoot(pkgID)

	faucetComponent := addressing.NewComponentAddress(faucetSeed, 0)
	faucetVault := addressing.VaultId{TxHash: faucetSeed, Counter: 0}
	vaultSubstate := substate.Substate{
		Kind:        substate.SubstateKindVault,
		VaultLiquid: &substate.ContainerData{Resource: feeResource, Amount: supply},
	}
	vaultID := substate.VaultId(faucetVault)
	if err := store.Put(vaultID, substate.OutputValue{Substate: vaultSubstate, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put faucet vault: %w", err)
	}

	faucetData := &substate.ComponentData{
		Package:     accountPackage,
		Blueprint:   "Faucet",
		StateBytes:  sbor.Encode(scryptovalue.MarshalVaultId(faucetVault)),
		AccessRules: substate.AccessRulesData{Rules: map[string][]byte{"lock_fee": resource.AllowAll().Marshal()}},
	}
	infoID := substate.ComponentInfoId(faucetComponent)
	stateID := substate.ComponentStateId(faucetComponent)
	if err := store.Put(infoID, substate.OutputValue{Substate: substate.Substate{Kind: substate.SubstateKindComponent, Component: faucetData}, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put faucet component: %w", err)
	}
	if err := store.Put(stateID, substate.OutputValue{Substate: substate.Substate{Kind: substate.SubstateKindComponent, Component: faucetData}, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put faucet component state: %w", err)
	}
	store.SetRoot(infoID)

	systemID := substate.SystemId()
	if err := store.Put(systemID, substate.OutputValue{Substate: substate.Substate{Kind: substate.SubstateKindSystem, SystemEpoch: 0}, Version: 1}); err != nil {
		return nil, fmt.Errorf("genesis: put system: %w", err)
	}
	store.SetRoot(systemID)

	return &GenesisResult{FeeResource: feeResource, AccountPackage: accountPackage, FaucetComponent: faucetComponent, FaucetVault: faucetVault}, nil
}
