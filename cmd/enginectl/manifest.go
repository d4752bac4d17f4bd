package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/executor"
)

// manifestFile is the JSON shape of a transaction manifest: a cost-unit
// limit plus an ordered instruction list. Addresses are hex; amounts
// are decimal strings; bucket references are indexes into the list of
// buckets produced by earlier TAKE_FROM_WORKTOP instructions.
type manifestFile struct {
	CostUnitLimit uint32                `json:"cost_unit_limit"`
	TipBps        uint16                `json:"tip_bps"`
	Instructions  []manifestInstruction `json:"instructions"`
}

type manifestInstruction struct {
	Op string `json:"op"`

	Package   string `json:"package,omitempty"`
	Blueprint string `json:"blueprint,omitempty"`
	Function  string `json:"function,omitempty"`

	Component string `json:"component,omitempty"`
	Method    string `json:"method,omitempty"`

	Resource string `json:"resource,omitempty"`
	Amount   string `json:"amount,omitempty"`

	Bucket *int `json:"bucket,omitempty"`

	CodeFile    string            `json:"code_file,omitempty"`
	Granularity int               `json:"granularity,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Mintable    bool              `json:"mintable,omitempty"`
}

func loadManifest(path string) (*manifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Instructions) == 0 {
		return nil, fmt.Errorf("manifest has no instructions")
	}
	return &m, nil
}

func (m *manifestFile) compile() ([]executor.Instruction, error) {
	out := make([]executor.Instruction, 0, len(m.Instructions))
	for i, mi := range m.Instructions {
		instr, err := mi.compile()
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, mi.Op, err)
		}
		out = append(out, instr)
	}
	return out, nil
}

func (mi manifestInstruction) compile() (executor.Instruction, error) {
	switch mi.Op {
	case "LOCK_FEE":
		comp, err := parseComponent(mi.Component)
		if err != nil {
			return executor.Instruction{}, err
		}
		amount, err := parseAmount(mi.Amount)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.LockFee(comp, amount), nil

	case "CALL_FUNCTION":
		pkg, err := parsePackage(mi.Package)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.CallFunction(pkg, mi.Blueprint, mi.Function), nil

	case "CALL_METHOD":
		comp, err := parseComponent(mi.Component)
		if err != nil {
			return executor.Instruction{}, err
		}
		if mi.Bucket != nil {
			return executor.CallMethodWithBucket(comp, mi.Method, *mi.Bucket), nil
		}
		if mi.Amount != "" {
			amount, err := parseAmount(mi.Amount)
			if err != nil {
				return executor.Instruction{}, err
			}
			return executor.CallMethodWithAmount(comp, mi.Method, amount), nil
		}
		return executor.CallMethod(comp, mi.Method), nil

	case "TAKE_FROM_WORKTOP":
		res, err := parseResource(mi.Resource)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.TakeFromWorktop(res), nil

	case "TAKE_FROM_WORKTOP_BY_AMOUNT":
		res, err := parseResource(mi.Resource)
		if err != nil {
			return executor.Instruction{}, err
		}
		amount, err := parseAmount(mi.Amount)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.TakeFromWorktopByAmount(res, amount), nil

	case "RETURN_TO_WORKTOP":
		if mi.Bucket == nil {
			return executor.Instruction{}, fmt.Errorf("missing bucket index")
		}
		return executor.ReturnToWorktop(*mi.Bucket), nil

	case "ASSERT_WORKTOP_CONTAINS":
		res, err := parseResource(mi.Resource)
		if err != nil {
			return executor.Instruction{}, err
		}
		if mi.Amount == "" {
			return executor.AssertWorktopContains(res), nil
		}
		amount, err := parseAmount(mi.Amount)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.AssertWorktopContainsByAmount(res, amount), nil

	case "DEPOSIT_BATCH":
		comp, err := parseComponent(mi.Component)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.DepositBatch(comp), nil

	case "CREATE_RESOURCE":
		return executor.CreateResource(mi.Granularity, mi.Metadata, mi.Mintable), nil

	case "MINT_RESOURCE":
		res, err := parseResource(mi.Resource)
		if err != nil {
			return executor.Instruction{}, err
		}
		amount, err := parseAmount(mi.Amount)
		if err != nil {
			return executor.Instruction{}, err
		}
		return executor.MintResource(res, amount), nil

	case "BURN_BUCKET":
		res, err := parseResource(mi.Resource)
		if err != nil {
			return executor.Instruction{}, err
		}
		if mi.Bucket == nil {
			return executor.Instruction{}, fmt.Errorf("missing bucket index")
		}
		return executor.BurnBucket(res, *mi.Bucket), nil

	case "PUBLISH_PACKAGE":
		code, err := os.ReadFile(mi.CodeFile)
		if err != nil {
			return executor.Instruction{}, fmt.Errorf("read code file: %w", err)
		}
		return executor.PublishPackage(code, map[string][]byte{}), nil

	case "CLEAR_AUTH_ZONE":
		return executor.ClearAuthZone(), nil

	default:
		return executor.Instruction{}, fmt.Errorf("unknown op %q", mi.Op)
	}
}

func parseAddress(s string) (addressing.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return addressing.Address{}, fmt.Errorf("invalid address hex %q: %w", s, err)
	}
	return addressing.AddressFromBytes(b)
}

func parsePackage(s string) (addressing.PackageAddress, error) {
	a, err := parseAddress(s)
	return addressing.PackageAddress{Address: a}, err
}

func parseComponent(s string) (addressing.ComponentAddress, error) {
	a, err := parseAddress(s)
	return addressing.ComponentAddress{Address: a}, err
}

func parseResource(s string) (addressing.ResourceAddress, error) {
	a, err := parseAddress(s)
	return addressing.ResourceAddress{Address: a}, err
}

func parseAmount(s string) (bnum.Decimal, error) {
	d, err := bnum.ParseDecimal(s)
	if err != nil {
		return bnum.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
