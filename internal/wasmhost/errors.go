package wasmhost

import "errors"

// ErrHasStartFunction is returned by Validate when the module declares
// a start section. Contract modules run only in response to an
// invocation; an implicit start function would execute outside the
// kernel's accounting.
var ErrHasStartFunction = errors.New("wasmhost: module declares a start function")

// ErrFloatingPointOp is returned by Validate when any function body
// contains a floating-point instruction. Floating-point arithmetic is
// not bit-reproducible across platforms, which breaks the engine's
// determinism guarantee.
var ErrFloatingPointOp = errors.New("wasmhost: module uses a floating-point instruction")

// ErrNoMemoryExport is returned by Validate when the module does not
// export a memory named "memory".
var ErrNoMemoryExport = errors.New("wasmhost: module does not export memory")

// ErrMissingEntrypoint is returned by Validate when the module does
// not export the required entrypoint function.
var ErrMissingEntrypoint = errors.New("wasmhost: module does not export package_init")

// ErrDisallowedImport is returned by Validate when the module imports
// anything outside the fixed host-function surface.
var ErrDisallowedImport = errors.New("wasmhost: module imports a disallowed host function")

// ErrMemoryAccess is returned when a host call receives a pointer or
// length that would read or write outside the instance's linear
// memory.
var ErrMemoryAccess = errors.New("wasmhost: out-of-bounds memory access")

// ErrExportNotFound is returned by Invoke when the requested function
// is not exported by the instance.
var ErrExportNotFound = errors.New("wasmhost: export not found")

// ErrNotAFunction is returned by Invoke when the requested export
// exists but is not a function, or when the function's return is not
// the packed i64 pointer/length pair.
var ErrNotAFunction = errors.New("wasmhost: export is not a function")
