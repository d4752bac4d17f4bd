package wasmhost

import "fmt"

// RequiredEntrypoint is the export every package's code blob must
// define: the blueprint initializer the kernel invokes once when the
// package is published. Its return value is not read.
const RequiredEntrypoint = "package_init"

// RequiredMemoryExport is the export name the bridge protocol expects
// for the instance's linear memory.
const RequiredMemoryExport = "memory"

// hostModule is the only import module name a package's code blob may
// reference; anything else would reach outside the kernel's accounting
// and break determinism.
const hostModule = "env"

// allowedImports is the fixed set of host functions a contract may
// import, keyed by name within hostModule.
var allowedImports = map[string]bool{
	"radix_engine":       true,
	"consume_cost_units": true,
}

// Validate runs the deterministic, pre-instantiation checks a package's
// code blob must pass before it can ever be instantiated: no start
// function, no floating-point instructions, a "memory" export, and a
// "package_init" function export. Validate does not compile code: it
// runs before any wasmtime.NewModule call, and only wasmtime judges
// whether code is structurally valid Wasm when the package is first
// instantiated.
func Validate(code []byte) error {
	pm, err := parseModule(code)
	if err != nil {
		return fmt.Errorf("wasmhost: validate: %w", err)
	}
	if pm.HasStart {
		return fmt.Errorf("wasmhost: validate: %w", ErrHasStartFunction)
	}
	if pm.UsesFloat {
		return fmt.Errorf("wasmhost: validate: %w", ErrFloatingPointOp)
	}
	for _, imp := range pm.Imports {
		if imp.Kind != importKindFunc {
			continue
		}
		if imp.Module != hostModule || !allowedImports[imp.Name] {
			return fmt.Errorf("wasmhost: validate: import %s.%s: %w", imp.Module, imp.Name, ErrDisallowedImport)
		}
	}
	hasMemory := false
	hasEntrypoint := false
	for _, e := range pm.Exports {
		if e.Kind == exportKindMemory && e.Name == RequiredMemoryExport {
			hasMemory = true
		}
		if e.Kind == exportKindFunc && e.Name == RequiredEntrypoint {
			hasEntrypoint = true
		}
	}
	if !hasMemory {
		return fmt.Errorf("wasmhost: validate: %w", ErrNoMemoryExport)
	}
	if !hasEntrypoint {
		return fmt.Errorf("wasmhost: validate: %w", ErrMissingEntrypoint)
	}
	return nil
}
