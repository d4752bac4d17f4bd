package wasmhost

import (
	"errors"
	"testing"
)

func TestInstrumentRejectsUnmeteredModule(t *testing.T) {
	code := buildModule(nil, 1, nil, validExports(0, 0), false)
	_, err := Instrument(code, 1)
	if !errors.Is(err, ErrNotMetered) {
		t.Fatalf("expected ErrNotMetered, got %v", err)
	}
}

func TestInstrumentInjectsMeterCallPerBlock(t *testing.T) {
	imports := []importSpec{{module: "env", name: "consume_cost_units"}}
	// Body with two blocks: a call (boundary) then end.
	body := []byte{0x10, 0x00, 0x0B} // call 0; end
	code := buildModule(imports, 1, body, validExports(1, 0), false)

	instrumented, err := Instrument(code, 1)
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}

	pmBefore, err := parseModule(code)
	if err != nil {
		t.Fatalf("parse original: %v", err)
	}
	pmAfter, err := parseModule(instrumented)
	if err != nil {
		t.Fatalf("parse instrumented: %v", err)
	}

	if len(pmAfter.FuncBodies) != len(pmBefore.FuncBodies) {
		t.Fatalf("expected same function count, got %d vs %d", len(pmAfter.FuncBodies), len(pmBefore.FuncBodies))
	}
	if len(pmAfter.FuncBodies[0]) <= len(pmBefore.FuncBodies[0]) {
		t.Fatalf("expected instrumented body to grow, got %d bytes (was %d)", len(pmAfter.FuncBodies[0]), len(pmBefore.FuncBodies[0]))
	}
	// Two blocks in the original body means two injected meter calls,
	// each contributing at least 3 bytes (i32.const imm + call idx).
	wantBlocks := len(pmBefore.FuncBlocks[0])
	if wantBlocks != 2 {
		t.Fatalf("expected source body to partition into 2 blocks, got %d", wantBlocks)
	}
}

func TestInstrumentReinstrumentAddsMeterCalls(t *testing.T) {
	imports := []importSpec{{module: "env", name: "consume_cost_units"}}
	body := []byte{0x10, 0x00, 0x0B}
	code := buildModule(imports, 1, body, validExports(1, 0), false)

	once, err := Instrument(code, 1)
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	twice, err := Instrument(once, 1)
	if err != nil {
		t.Fatalf("re-instrument: %v", err)
	}
	if len(twice) <= len(once) {
		t.Fatalf("re-instrumenting should add another layer of meter calls, got %d vs %d bytes", len(twice), len(once))
	}
}
