package wasmhost

import (
	"errors"
	"testing"
)

// importSpec and exportSpec describe one entry to bake into a
// hand-assembled test module; the helpers below build just enough of
// the binary format for parseModule to walk, not a module wasmtime
// would necessarily accept.
type importSpec struct {
	module, name string
}

type exportSpec struct {
	name string
	kind exportKind
	idx  uint32
}

func str(s string) []byte {
	b := writeVarUint32(nil, uint32(len(s)))
	return append(b, s...)
}

// buildModule assembles a minimal module: one empty-signature func
// type, the given func imports, numFuncs locally defined functions
// (each with body funcBody, defaulting to a lone "end"), a one-page
// memory, the given exports, and an optional start section pointing at
// function index 0.
func buildModule(imports []importSpec, numFuncs int, funcBody []byte, exports []exportSpec, hasStart bool) []byte {
	if funcBody == nil {
		funcBody = []byte{0x0B} // end
	}

	var typeSec []byte
	typeSec = writeVarUint32(typeSec, 1)
	typeSec = append(typeSec, 0x60, 0x00, 0x00)

	var importSec []byte
	importSec = writeVarUint32(importSec, uint32(len(imports)))
	for _, imp := range imports {
		importSec = append(importSec, str(imp.module)...)
		importSec = append(importSec, str(imp.name)...)
		importSec = append(importSec, byte(importKindFunc))
		importSec = writeVarUint32(importSec, 0)
	}

	var funcSec []byte
	funcSec = writeVarUint32(funcSec, uint32(numFuncs))
	for i := 0; i < numFuncs; i++ {
		funcSec = writeVarUint32(funcSec, 0)
	}

	var memSec []byte
	memSec = writeVarUint32(memSec, 1)
	memSec = append(memSec, 0x00)
	memSec = writeVarUint32(memSec, 1)

	var exportSec []byte
	exportSec = writeVarUint32(exportSec, uint32(len(exports)))
	for _, exp := range exports {
		exportSec = append(exportSec, str(exp.name)...)
		exportSec = append(exportSec, byte(exp.kind))
		exportSec = writeVarUint32(exportSec, exp.idx)
	}

	var startSec []byte
	if hasStart {
		startSec = writeVarUint32(startSec, 0)
	}

	var codeSec []byte
	codeSec = writeVarUint32(codeSec, uint32(numFuncs))
	for i := 0; i < numFuncs; i++ {
		var body []byte
		body = writeVarUint32(body, 0) // no locals
		body = append(body, funcBody...)
		codeSec = writeVarUint32(codeSec, uint32(len(body)))
		codeSec = append(codeSec, body...)
	}

	sections := []rawSection{
		{id: secType, body: typeSec},
	}
	if len(imports) > 0 {
		sections = append(sections, rawSection{id: secImport, body: importSec})
	}
	sections = append(sections, rawSection{id: secFunction, body: funcSec})
	sections = append(sections, rawSection{id: secMemory, body: memSec})
	sections = append(sections, rawSection{id: secExport, body: exportSec})
	if hasStart {
		sections = append(sections, rawSection{id: secStart, body: startSec})
	}
	sections = append(sections, rawSection{id: secCode, body: codeSec})

	return assembleModule(sections)
}

func validExports(funcIdx, memIdx uint32) []exportSpec {
	return []exportSpec{
		{name: RequiredMemoryExport, kind: exportKindMemory, idx: memIdx},
		{name: RequiredEntrypoint, kind: exportKindFunc, idx: funcIdx},
	}
}

func TestValidateAcceptsWellFormedModule(t *testing.T) {
	code := buildModule(nil, 1, nil, validExports(0, 0), false)
	if err := Validate(code); err != nil {
		t.Fatalf("expected valid module to pass, got %v", err)
	}
}

func TestValidateRejectsMissingMemoryExport(t *testing.T) {
	code := buildModule(nil, 1, nil, []exportSpec{{name: RequiredEntrypoint, kind: exportKindFunc, idx: 0}}, false)
	err := Validate(code)
	if !errors.Is(err, ErrNoMemoryExport) {
		t.Fatalf("expected ErrNoMemoryExport, got %v", err)
	}
}

func TestValidateRejectsMissingEntrypoint(t *testing.T) {
	code := buildModule(nil, 1, nil, []exportSpec{{name: RequiredMemoryExport, kind: exportKindMemory, idx: 0}}, false)
	err := Validate(code)
	if !errors.Is(err, ErrMissingEntrypoint) {
		t.Fatalf("expected ErrMissingEntrypoint, got %v", err)
	}
}

func TestValidateRejectsStartFunction(t *testing.T) {
	code := buildModule(nil, 1, nil, validExports(0, 0), true)
	err := Validate(code)
	if !errors.Is(err, ErrHasStartFunction) {
		t.Fatalf("expected ErrHasStartFunction, got %v", err)
	}
}

func TestValidateRejectsFloatingPointOp(t *testing.T) {
	floatBody := []byte{0x43, 0x00, 0x00, 0x00, 0x00, 0x1A, 0x0B} // f32.const 0; drop; end
	code := buildModule(nil, 1, floatBody, validExports(0, 0), false)
	err := Validate(code)
	if !errors.Is(err, ErrFloatingPointOp) {
		t.Fatalf("expected ErrFloatingPointOp, got %v", err)
	}
}

func TestValidateAcceptsAllowedImports(t *testing.T) {
	imports := []importSpec{
		{module: "env", name: "radix_engine"},
		{module: "env", name: "consume_cost_units"},
	}
	// Defined function indices start after the 2 imported functions.
	code := buildModule(imports, 1, nil, validExports(2, 0), false)
	if err := Validate(code); err != nil {
		t.Fatalf("expected allowed imports to pass, got %v", err)
	}
}

func TestValidateRejectsDisallowedImport(t *testing.T) {
	imports := []importSpec{{module: "env", name: "panic"}}
	code := buildModule(imports, 1, nil, validExports(1, 0), false)
	err := Validate(code)
	if !errors.Is(err, ErrDisallowedImport) {
		t.Fatalf("expected ErrDisallowedImport, got %v", err)
	}
}

func TestValidateRejectsImportFromWrongModule(t *testing.T) {
	imports := []importSpec{{module: "wasi_snapshot_preview1", name: "radix_engine"}}
	code := buildModule(imports, 1, nil, validExports(1, 0), false)
	err := Validate(code)
	if !errors.Is(err, ErrDisallowedImport) {
		t.Fatalf("expected ErrDisallowedImport, got %v", err)
	}
}
