package wasmhost

import (
	"fmt"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v29"

	"github.com/radixcore/engine/internal/addressing"
)

// WasmRuntime is the kernel-side handle a running contract's host
// calls are bridged to: radix_engine forwards an encoded
// RadixEngineInput and returns the encoded response, and
// consume_cost_units debits the active frame's fee reserve.
type WasmRuntime interface {
	HandleRadixEngineInput(input []byte) ([]byte, error)
	ConsumeCostUnits(units uint32) error
}

// runtimeSlot is a per-instance, stack-indexed WasmRuntime handle. It
// is never a package-level global: nested invocations (a contract
// calling into another contract, which calls back into Wasm) push a
// new runtime on entry and pop it on return, so each host callback
// always reaches the runtime for its own call frame.
type runtimeSlot struct {
	mu    sync.Mutex
	stack []WasmRuntime
}

func (s *runtimeSlot) push(rt WasmRuntime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = append(s.stack, rt)
}

func (s *runtimeSlot) pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *runtimeSlot) current() WasmRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Engine wraps one wasmtime.Engine plus a module cache keyed by code
// hash, so a package published once and invoked many times across
// many transactions pays the compilation cost only once.
type Engine struct {
	engine *wasmtime.Engine

	mu      sync.Mutex
	modules map[addressing.Hash]*wasmtime.Module
}

// NewEngine builds a wasmtime.Engine configured for fuel-metered,
// deterministic execution: fuel consumption enabled and Cranelift
// optimising for speed; no WASI is linked.
func NewEngine() *Engine {
	cfg := wasmtime.NewConfig()
	cfg.SetConsumeFuel(true)
	cfg.SetCraneliftOptLevel(wasmtime.OptLevelSpeed)
	return &Engine{
		engine:  wasmtime.NewEngineWithConfig(cfg),
		modules: make(map[addressing.Hash]*wasmtime.Module),
	}
}

func (e *Engine) module(code []byte) (*wasmtime.Module, addressing.Hash, error) {
	hash := addressing.Sum256(code)
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.modules[hash]; ok {
		return m, hash, nil
	}
	m, err := wasmtime.NewModule(e.engine, code)
	if err != nil {
		return nil, hash, fmt.Errorf("wasmhost: compile module: %w", err)
	}
	e.modules[hash] = m
	return m, hash, nil
}

// Instance is one instantiation of a package's code, bound to a single
// wasmtime.Store (and therefore to a single call frame's lifetime).
type Instance struct {
	store    *wasmtime.Store
	instance *wasmtime.Instance
	memory   *wasmtime.Memory
	slot     *runtimeSlot
}

// Instantiate compiles (or reuses a cached compilation of) code,
// links radix_engine and consume_cost_units against the instance's
// runtime slot (filled by Invoke), and instantiates it with fuelLimit
// fuel available.
func (e *Engine) Instantiate(code []byte, fuelLimit uint64) (*Instance, error) {
	module, _, err := e.module(code)
	if err != nil {
		return nil, err
	}

	store := wasmtime.NewStore(e.engine)
	if err := store.SetFuel(fuelLimit); err != nil {
		return nil, fmt.Errorf("wasmhost: set fuel: %w", err)
	}

	slot := &runtimeSlot{}
	linker := wasmtime.NewLinker(e.engine)

	err = linker.FuncNew(hostModule, "radix_engine", wasmtime.NewFuncType(
		[]*wasmtime.ValType{wasmtime.NewValType(wasmtime.KindI32), wasmtime.NewValType(wasmtime.KindI32)},
		[]*wasmtime.ValType{wasmtime.NewValType(wasmtime.KindI64)},
	), func(caller *wasmtime.Caller, args []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
		rt := slot.current()
		if rt == nil {
			return nil, wasmtime.NewTrap("wasmhost: no active runtime")
		}
		mem := caller.GetExport("memory").Memory()
		ptr := uint32(args[0].I32())
		length := uint32(args[1].I32())
		input, err := readGuestBytes(mem, caller, ptr, length)
		if err != nil {
			return nil, wasmtime.NewTrap(err.Error())
		}
		output, err := rt.HandleRadixEngineInput(input)
		if err != nil {
			return nil, wasmtime.NewTrap(err.Error())
		}
		outPtr, err := writeGuestBytes(caller, mem, output)
		if err != nil {
			return nil, wasmtime.NewTrap(err.Error())
		}
		return []wasmtime.Val{wasmtime.ValI64(packPtrLen(outPtr, uint32(len(output))))}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wasmhost: link radix_engine: %w", err)
	}

	err = linker.FuncNew(hostModule, "consume_cost_units", wasmtime.NewFuncType(
		[]*wasmtime.ValType{wasmtime.NewValType(wasmtime.KindI32)},
		nil,
	), func(caller *wasmtime.Caller, args []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
		rt := slot.current()
		if rt == nil {
			return nil, wasmtime.NewTrap("wasmhost: no active runtime")
		}
		units := uint32(args[0].I32())
		if err := rt.ConsumeCostUnits(units); err != nil {
			return nil, wasmtime.NewTrap(err.Error())
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wasmhost: link consume_cost_units: %w", err)
	}

	inst, err := linker.Instantiate(store, module)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: instantiate: %w", err)
	}
	memExport := inst.GetExport(store, RequiredMemoryExport)
	if memExport == nil || memExport.Memory() == nil {
		return nil, fmt.Errorf("wasmhost: instantiate: %w", ErrNoMemoryExport)
	}

	return &Instance{store: store, instance: inst, memory: memExport.Memory(), slot: slot}, nil
}

// Invoke calls the exported function fnName with args (an
// already-SBOR-encoded value), via the scrypto_alloc allocation
// protocol: args are copied into guest memory allocated through the
// guest's own "scrypto_alloc" export, the target function is called
// with (ptr, len), and its (ptr, len) packed i64 return is read back
// out of guest memory and copied into a fresh Go slice before the
// store (and therefore the guest memory) is torn down.
func (ins *Instance) Invoke(fnName string, args []byte, rt WasmRuntime) ([]byte, error) {
	ins.slot.push(rt)
	defer ins.slot.pop()

	fn := ins.instance.GetExport(ins.store, fnName)
	if fn == nil {
		return nil, fmt.Errorf("wasmhost: invoke %s: %w", fnName, ErrExportNotFound)
	}
	if fn.Func() == nil {
		return nil, fmt.Errorf("wasmhost: invoke %s: %w", fnName, ErrNotAFunction)
	}
	f := fn.Func()

	ptr, err := ins.allocGuest(uint32(len(args)))
	if err != nil {
		return nil, err
	}
	if err := writeGuestAt(ins.memory, ins.store, ptr, args); err != nil {
		return nil, err
	}

	ret, err := f.Call(ins.store, int32(ptr), int32(len(args)))
	if err != nil {
		return nil, fmt.Errorf("wasmhost: invoke %s: %w", fnName, err)
	}
	packed, ok := ret.(int64)
	if !ok {
		return nil, fmt.Errorf("wasmhost: invoke %s: %w", fnName, ErrNotAFunction)
	}
	outPtr, outLen := unpackPtrLen(uint64(packed))
	return readGuestBytes(ins.memory, ins.store, outPtr, outLen)
}

// allocGuest calls the guest's exported "scrypto_alloc" to reserve n
// bytes of guest-owned linear memory and returns the pointer.
func (ins *Instance) allocGuest(n uint32) (uint32, error) {
	allocFn := ins.instance.GetExport(ins.store, "scrypto_alloc")
	if allocFn == nil || allocFn.Func() == nil {
		return 0, fmt.Errorf("wasmhost: guest does not export scrypto_alloc")
	}
	ret, err := allocFn.Func().Call(ins.store, int32(n))
	if err != nil {
		return 0, fmt.Errorf("wasmhost: scrypto_alloc: %w", err)
	}
	ptr, ok := ret.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmhost: scrypto_alloc: unexpected return type")
	}
	return uint32(ptr), nil
}

// packPtrLen / unpackPtrLen implement the single-i64-return ABI used
// to pass a (ptr, len) pair back across the Wasm boundary without an
// extra host call: high 32 bits are the pointer, low 32 bits the
// length, matching the source's send_value encoding.
func packPtrLen(ptr, length uint32) int64 {
	return int64(uint64(ptr)<<32 | uint64(length))
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}

// readGuestBytes copies length bytes at ptr out of mem, bounds-checked
// against the instance's current memory size so a malicious or buggy
// guest can never trigger an out-of-bounds host read.
func readGuestBytes(mem *wasmtime.Memory, store wasmtime.Storelike, ptr, length uint32) ([]byte, error) {
	data := mem.UnsafeData(store)
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(data)) {
		return nil, ErrMemoryAccess
	}
	out := make([]byte, length)
	copy(out, data[ptr:end])
	return out, nil
}

func writeGuestAt(mem *wasmtime.Memory, store wasmtime.Storelike, ptr uint32, value []byte) error {
	data := mem.UnsafeData(store)
	end := uint64(ptr) + uint64(len(value))
	if end > uint64(len(data)) {
		return ErrMemoryAccess
	}
	copy(data[ptr:end], value)
	return nil
}

// writeGuestBytes allocates space for value via the guest's
// scrypto_alloc (reached through caller, since host-call callbacks
// only have a *Caller, not the owning *Instance) and copies value in.
func writeGuestBytes(caller *wasmtime.Caller, mem *wasmtime.Memory, value []byte) (uint32, error) {
	allocExport := caller.GetExport("scrypto_alloc")
	if allocExport == nil || allocExport.Func() == nil {
		return 0, fmt.Errorf("wasmhost: guest does not export scrypto_alloc")
	}
	ret, err := allocExport.Func().Call(caller, int32(len(value)))
	if err != nil {
		return 0, fmt.Errorf("wasmhost: scrypto_alloc: %w", err)
	}
	ptr, ok := ret.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmhost: scrypto_alloc: unexpected return type")
	}
	if err := writeGuestAt(mem, caller, uint32(ptr), value); err != nil {
		return 0, err
	}
	return uint32(ptr), nil
}

