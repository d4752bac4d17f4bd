package kernel

import (
	"fmt"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/sbor"
	"github.com/radixcore/engine/internal/scryptovalue"
)

// InputKind discriminates the variant of a RadixEngineInput sent by a
// running contract over the radix_engine host call.
type InputKind uint8

const (
	InputInvokeFunction InputKind = iota
	InputInvokeMethod
	InputCreateKeyValueStore
	InputGetKeyValueStoreEntry
	InputPutKeyValueStoreEntry
	InputGetComponentInfo
	InputGetComponentState
	InputPutComponentState
	InputGetActor
	InputGenerateUuid
	InputEmitLog
)

// handleInput is the kernelRuntime adapter's bridge: it decodes the
// tagged enum a guest's radix_engine call sent, dispatches it against
// frame (the callee frame this Wasm instance is running in), and
// encodes the response the same way.
func (k *Kernel) handleInput(frame *Frame, raw []byte) ([]byte, error) {
	v, err := sbor.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("kernel: decode radix engine input: %w", err)
	}
	if v.Type != sbor.TypeEnum {
		return nil, fmt.Errorf("kernel: radix engine input: expected enum, got %s", v.Type)
	}

	switch InputKind(v.Variant) {
	case InputInvokeFunction:
		return k.handleInvokeFunction(frame, v.Fields)
	case InputInvokeMethod:
		return k.handleInvokeMethod(frame, v.Fields)
	case InputCreateKeyValueStore:
		id := k.CreateKeyValueStoreNode(frame)
		return sbor.Encode(scryptovalue.MarshalKeyValueStoreId(id)), nil
	case InputGetKeyValueStoreEntry:
		return k.handleGetKVEntry(v.Fields)
	case InputPutKeyValueStoreEntry:
		return k.handlePutKVEntry(v.Fields)
	case InputGetComponentInfo:
		return k.handleGetComponentInfo(v.Fields)
	case InputGetComponentState:
		return k.handleGetComponentState(frame)
	case InputPutComponentState:
		return k.handlePutComponentState(frame, v.Fields)
	case InputGetActor:
		return []byte(frame.Actor.String()), nil
	case InputGenerateUuid:
		n := k.nextCounter()
		return sbor.Encode(sbor.U32(n)), nil
	case InputEmitLog:
		return k.handleEmitLog(v.Fields)
	default:
		return nil, fmt.Errorf("kernel: radix engine input: unknown variant %d", v.Variant)
	}
}

func (k *Kernel) handleInvokeFunction(frame *Frame, fields []sbor.Value) ([]byte, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("kernel: invoke function: malformed input")
	}
	addr, err := addressing.AddressFromBytes(fields[0].Bytes)
	if err != nil {
		return nil, fmt.Errorf("kernel: invoke function: %w", err)
	}
	blueprint := fields[1].Str
	argsVal, err := scryptovalue.FromSBOR(fields[2])
	if err != nil {
		return nil, fmt.Errorf("kernel: invoke function: %w", err)
	}
	ref := SNodeRef{IsFunction: true, Package: addressing.PackageAddress{Address: addr}, Blueprint: blueprint, FnIdent: blueprintFn(fields)}
	result, err := k.Invoke(frame, ref, argsVal)
	if err != nil {
		return nil, err
	}
	return sbor.Encode(result.Raw), nil
}

func (k *Kernel) handleInvokeMethod(frame *Frame, fields []sbor.Value) ([]byte, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("kernel: invoke method: malformed input")
	}
	addr, err := addressing.AddressFromBytes(fields[0].Bytes)
	if err != nil {
		return nil, fmt.Errorf("kernel: invoke method: %w", err)
	}
	fnIdent := fields[1].Str
	argsVal, err := scryptovalue.FromSBOR(fields[2])
	if err != nil {
		return nil, fmt.Errorf("kernel: invoke method: %w", err)
	}
	ref := SNodeRef{IsMethod: true, Component: addressing.ComponentAddress{Address: addr}, FnIdent: fnIdent}
	result, err := k.Invoke(frame, ref, argsVal)
	if err != nil {
		return nil, err
	}
	return sbor.Encode(result.Raw), nil
}

// blueprintFn recovers the function name carried as the input's 4th
// logical field. InvokeFunction's wire shape is
// (package, blueprint, fn_name_embedded_in_args_struct_field0, args);
// callers build fields[2] as a 2-field struct(fn_name, args) to keep
// the enum itself 3-ary. This mirrors how the Wasm side packs a call.
func blueprintFn(fields []sbor.Value) string {
	if len(fields) < 3 || fields[2].Type != sbor.TypeStruct || len(fields[2].Fields) < 1 {
		return ""
	}
	return fields[2].Fields[0].Str
}

func (k *Kernel) handleGetKVEntry(fields []sbor.Value) ([]byte, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("kernel: get kv entry: malformed input")
	}
	kvId, err := decodeKVStoreId(fields[0])
	if err != nil {
		return nil, err
	}
	sub, ok, err := k.DataRead(DataAddress{Kind: DataKeyValueStoreEntry, KVStore: kvId, KVKey: fields[1].Bytes})
	if err != nil {
		return nil, err
	}
	if !ok || !sub.Present {
		return sbor.Encode(sbor.Bool(false)), nil
	}
	return sbor.Encode(sbor.Struct(sbor.Bool(true), sbor.Bytes(sub.KeyValueStoreEntryData))), nil
}

func (k *Kernel) handlePutKVEntry(fields []sbor.Value) ([]byte, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("kernel: put kv entry: malformed input")
	}
	kvId, err := decodeKVStoreId(fields[0])
	if err != nil {
		return nil, err
	}
	if err := k.DataWrite(DataAddress{Kind: DataKeyValueStoreEntry, KVStore: kvId, KVKey: fields[1].Bytes}, fields[2].Bytes); err != nil {
		return nil, err
	}
	return sbor.Encode(sbor.Unit()), nil
}

func (k *Kernel) handleGetComponentInfo(fields []sbor.Value) ([]byte, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("kernel: get component info: malformed input")
	}
	addr, err := addressing.AddressFromBytes(fields[0].Bytes)
	if err != nil {
		return nil, err
	}
	sub, ok, err := k.DataRead(DataAddress{Kind: DataComponentInfo, Component: addressing.ComponentAddress{Address: addr}})
	if err != nil {
		return nil, err
	}
	if !ok || sub.Component == nil {
		return nil, fmt.Errorf("kernel: get component info: %w", ErrComponentNotFound)
	}
	return sbor.Encode(sbor.Struct(sbor.Bytes(sub.Component.Package.Bytes()), sbor.String(sub.Component.Blueprint))), nil
}

func (k *Kernel) handleGetComponentState(frame *Frame) ([]byte, error) {
	if frame.Actor.Kind != ActorComponent {
		return nil, fmt.Errorf("kernel: get component state: not running as a component")
	}
	sub, ok, err := k.DataRead(DataAddress{Kind: DataComponentState, Component: frame.Actor.Component})
	if err != nil {
		return nil, err
	}
	if !ok || sub.Component == nil {
		return nil, fmt.Errorf("kernel: get component state: %w", ErrComponentNotFound)
	}
	return sub.Component.StateBytes, nil
}

func (k *Kernel) handlePutComponentState(frame *Frame, fields []sbor.Value) ([]byte, error) {
	if frame.Actor.Kind != ActorComponent {
		return nil, fmt.Errorf("kernel: put component state: not running as a component")
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("kernel: put component state: malformed input")
	}
	if err := k.DataWrite(DataAddress{Kind: DataComponentState, Component: frame.Actor.Component}, fields[0].Bytes); err != nil {
		return nil, err
	}
	return sbor.Encode(sbor.Unit()), nil
}

func (k *Kernel) handleEmitLog(fields []sbor.Value) ([]byte, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("kernel: emit log: malformed input")
	}
	k.EmitLog(fields[0].Str, fields[1].Str)
	return sbor.Encode(sbor.Unit()), nil
}

func decodeKVStoreId(v sbor.Value) (addressing.KeyValueStoreId, error) {
	if v.Type != sbor.TypeCustom || len(v.Custom.Body) != addressing.HashSize+4 {
		return addressing.KeyValueStoreId{}, fmt.Errorf("kernel: malformed key-value store id")
	}
	h, err := addressing.HashFromBytes(v.Custom.Body[:addressing.HashSize])
	if err != nil {
		return addressing.KeyValueStoreId{}, err
	}
	counter := uint32(v.Custom.Body[addressing.HashSize])<<24 | uint32(v.Custom.Body[addressing.HashSize+1])<<16 | uint32(v.Custom.Body[addressing.HashSize+2])<<8 | uint32(v.Custom.Body[addressing.HashSize+3])
	return addressing.KeyValueStoreId{TxHash: h, Counter: counter}, nil
}
