package wasmhost

import (
	"errors"
	"fmt"
)

// consumeCostUnitsFuncName is the host import Instrument meters calls
// against. Validate's import allowlist means any module that passed
// validation already imports exactly this (and/or radix_engine) from
// "env", so Instrument never needs to add an import of its own: doing
// so would renumber every function index in the module, including the
// operands of every existing `call` instruction, which this package
// does not attempt to rewrite.
const consumeCostUnitsFuncName = "consume_cost_units"

// ErrNotMetered is returned by Instrument when code does not import
// consume_cost_units, since Instrument has nothing to call.
var ErrNotMetered = errors.New("wasmhost: module does not import consume_cost_units")

// Instrument rewrites code's function bodies so that, at the head of
// every basic block (a run of instructions ending at a branch, call,
// or return, as already partitioned by parseModule), the instance
// calls consume_cost_units(n) where n = unitsPerInstr * the block's
// instruction count. This is the engine's deterministic,
// implementation-independent metering pass: the injected charge
// depends only on the static block partition, never on anything the
// guest chooses at runtime.
func Instrument(code []byte, unitsPerInstr uint32) ([]byte, error) {
	pm, err := parseModule(code)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: instrument: %w", err)
	}

	meterFuncIdx, ok := meterFuncIndex(pm.Imports)
	if !ok {
		return nil, fmt.Errorf("wasmhost: instrument: %w", ErrNotMetered)
	}

	sections := append([]rawSection(nil), pm.sections...)
	codeSecIdx := -1
	for i, s := range sections {
		if s.id == secCode {
			codeSecIdx = i
			break
		}
	}
	if codeSecIdx < 0 {
		return code, nil
	}

	var newCode []byte
	newCode = writeVarUint32(newCode, uint32(len(pm.FuncBodies)))
	for i, fb := range pm.FuncBodies {
		instrumented := instrumentBody(fb, pm.FuncBlocks[i], meterFuncIdx, unitsPerInstr)
		newCode = writeVarUint32(newCode, uint32(len(instrumented)))
		newCode = append(newCode, instrumented...)
	}
	sections[codeSecIdx].body = newCode

	return assembleModule(sections), nil
}

// meterFuncIndex returns the function-index-space position of the
// consume_cost_units import, which (being an import) always precedes
// every locally defined function.
func meterFuncIndex(imports []moduleImport) (uint32, bool) {
	var idx uint32
	for _, imp := range imports {
		if imp.Kind != importKindFunc {
			continue
		}
		if imp.Module == hostModule && imp.Name == consumeCostUnitsFuncName {
			return idx, true
		}
		idx++
	}
	return 0, false
}

// instrumentBody rewrites one function body: the locals declaration is
// kept verbatim, and an `i32.const units` `call meterFuncIdx` pair is
// spliced in front of every block.
func instrumentBody(fb []byte, blocks []block, meterFuncIdx uint32, unitsPerInstr uint32) []byte {
	localsEnd := blocks[0].Start
	out := append([]byte(nil), fb[:localsEnd]...)

	for _, b := range blocks {
		units := unitsPerInstr * uint32(b.InstrCount)
		out = append(out, meterCallBytes(units, meterFuncIdx)...)
		out = append(out, fb[b.Start:b.End]...)
	}
	return out
}

// meterCallBytes encodes `i32.const units; call meterFuncIdx`.
func meterCallBytes(units uint32, meterFuncIdx uint32) []byte {
	var buf []byte
	buf = append(buf, 0x41) // i32.const
	buf = appendSLEB32(buf, int32(units))
	buf = append(buf, 0x10) // call
	buf = writeVarUint32(buf, meterFuncIdx)
	return buf
}

// appendSLEB32 appends the signed LEB128 encoding of v.
func appendSLEB32(buf []byte, v int32) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}
