package wasmhost

import "fmt"

// wasmbin.go implements the minimal WebAssembly binary-format walk
// this package needs: enough to enumerate imports/exports, locate the
// start section, and disassemble function bodies into basic blocks
// while flagging any floating-point opcode. It covers the MVP
// instruction set plus sign-extension ops and the saturating
// truncation (trunc_sat) prefixed opcodes; it does not understand
// SIMD, bulk-memory, or reference-types encodings. wasmtime itself is
// the authority on whether a module is valid Wasm. This walk runs
// before wasmtime.NewModule sees the bytes; it is not a general-purpose
// validator, only a classifier, and it returns an error on input it
// cannot walk.

type importKind byte

const (
	importKindFunc importKind = iota
	importKindTable
	importKindMemory
	importKindGlobal
)

type exportKind byte

const (
	exportKindFunc exportKind = iota
	exportKindTable
	exportKindMemory
	exportKindGlobal
)

type moduleImport struct {
	Module string
	Name   string
	Kind   importKind
}

type moduleExport struct {
	Name string
	Kind exportKind
}

// block is one instrumentation unit within a function body: a run of
// instructions ending at a branch, call, or return (or at the body's
// end), identified by its byte range within the body.
type block struct {
	Start, End int
	InstrCount int
}

type rawSection struct {
	id   byte
	body []byte
}

type parsedModule struct {
	Imports    []moduleImport
	Exports    []moduleExport
	HasStart   bool
	FuncBodies [][]byte // raw bytes of each defined function's body (locals + instructions)
	UsesFloat  bool
	FuncBlocks [][]block // per-body block partition

	sections []rawSection // every section in file order, for reassembly by Instrument
}

const (
	secCustom   = 0
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secStart    = 8
	secElement  = 9
	secCode     = 10
	secData     = 11
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6D}

func parseModule(code []byte) (*parsedModule, error) {
	if len(code) < 8 {
		return nil, fmt.Errorf("wasmhost: module too short")
	}
	for i, b := range wasmMagic {
		if code[i] != b {
			return nil, fmt.Errorf("wasmhost: bad wasm magic")
		}
	}
	off := 8
	pm := &parsedModule{}
	for off < len(code) {
		id := code[off]
		off++
		size, next, err := readVarUint32(code, off)
		if err != nil {
			return nil, fmt.Errorf("wasmhost: section size: %w", err)
		}
		off = next
		if off+int(size) > len(code) {
			return nil, fmt.Errorf("wasmhost: section overruns module")
		}
		body := code[off : off+int(size)]
		pm.sections = append(pm.sections, rawSection{id: id, body: body})
		switch id {
		case secImport:
			if err := parseImportSection(body, pm); err != nil {
				return nil, err
			}
		case secExport:
			if err := parseExportSection(body, pm); err != nil {
				return nil, err
			}
		case secStart:
			pm.HasStart = true
		case secCode:
			if err := parseCodeSection(body, pm); err != nil {
				return nil, err
			}
		}
		off += int(size)
	}
	return pm, nil
}

func parseImportSection(body []byte, pm *parsedModule) error {
	count, off, err := readVarUint32(body, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mod, next, err := readString(body, off)
		if err != nil {
			return err
		}
		off = next
		name, next, err := readString(body, off)
		if err != nil {
			return err
		}
		off = next
		if off >= len(body) {
			return fmt.Errorf("wasmhost: truncated import entry")
		}
		kind := importKind(body[off])
		off++
		switch kind {
		case importKindFunc, importKindTable, importKindGlobal:
			off, err = skipLEB(body, off)
			if err != nil {
				return err
			}
			if kind == importKindTable {
				// table type: elemtype(1) + limits
				off++
				off, err = skipLimits(body, off)
				if err != nil {
					return err
				}
			}
			if kind == importKindGlobal {
				// valtype(1) + mutability(1)
				off += 2
			}
		case importKindMemory:
			off, err = skipLimits(body, off)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("wasmhost: unknown import kind %d", kind)
		}
		pm.Imports = append(pm.Imports, moduleImport{Module: mod, Name: name, Kind: kind})
	}
	return nil
}

func parseExportSection(body []byte, pm *parsedModule) error {
	count, off, err := readVarUint32(body, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, next, err := readString(body, off)
		if err != nil {
			return err
		}
		off = next
		if off >= len(body) {
			return fmt.Errorf("wasmhost: truncated export entry")
		}
		kind := exportKind(body[off])
		off++
		off, err = skipLEB(body, off)
		if err != nil {
			return err
		}
		pm.Exports = append(pm.Exports, moduleExport{Name: name, Kind: kind})
	}
	return nil
}

func parseCodeSection(body []byte, pm *parsedModule) error {
	count, off, err := readVarUint32(body, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		bodySize, next, err := readVarUint32(body, off)
		if err != nil {
			return err
		}
		off = next
		if off+int(bodySize) > len(body) {
			return fmt.Errorf("wasmhost: function body overruns code section")
		}
		fb := body[off : off+int(bodySize)]
		pm.FuncBodies = append(pm.FuncBodies, fb)
		floatUsed, blocks, err := walkFunctionBody(fb)
		if err != nil {
			return err
		}
		if floatUsed {
			pm.UsesFloat = true
		}
		pm.FuncBlocks = append(pm.FuncBlocks, blocks)
		off += int(bodySize)
	}
	return nil
}

func skipLimits(b []byte, off int) (int, error) {
	if off >= len(b) {
		return 0, fmt.Errorf("wasmhost: truncated limits")
	}
	flag := b[off]
	off++
	off, err := skipLEB(b, off)
	if err != nil {
		return 0, err
	}
	if flag == 1 {
		off, err = skipLEB(b, off)
		if err != nil {
			return 0, err
		}
	}
	return off, nil
}

// walkFunctionBody parses the local-declaration vector, then
// disassembles the instruction stream, partitioning it into basic
// blocks split after every branch, br_table, call, call_indirect, and
// return opcode (plus a final block ending at the body's end), and
// reporting whether any floating-point opcode appeared.
func walkFunctionBody(fb []byte) (usesFloat bool, blocks []block, err error) {
	localCount, off, err := readVarUint32(fb, 0)
	if err != nil {
		return false, nil, err
	}
	for i := uint32(0); i < localCount; i++ {
		_, next, err := readVarUint32(fb, off)
		if err != nil {
			return false, nil, err
		}
		off = next + 1 // valtype byte
	}

	blockStart := off
	instrCount := 0
	for off < len(fb) {
		opcode := fb[off]
		off++
		isFloat := false
		isBoundary := false

		switch {
		case opcode == 0x00 || opcode == 0x01 || opcode == 0x05 || opcode == 0x0B || opcode == 0x1A || opcode == 0x1B:
			// no immediate
		case opcode == 0x02 || opcode == 0x03 || opcode == 0x04:
			off, err = skipBlockType(fb, off)
		case opcode == 0x0C || opcode == 0x0D:
			off, err = skipLEB(fb, off)
			isBoundary = true
		case opcode == 0x0E:
			var count uint32
			count, off, err = readVarUint32(fb, off)
			if err == nil {
				for j := uint32(0); j < count+1; j++ {
					off, err = skipLEB(fb, off)
					if err != nil {
						break
					}
				}
			}
			isBoundary = true
		case opcode == 0x0F:
			isBoundary = true
		case opcode == 0x10:
			off, err = skipLEB(fb, off)
			isBoundary = true
		case opcode == 0x11:
			off, err = skipLEB(fb, off)
			if err == nil {
				off++ // reserved table index byte
			}
			isBoundary = true
		case opcode == 0x1C:
			var count uint32
			count, off, err = readVarUint32(fb, off)
			if err == nil {
				off += int(count)
			}
		case opcode >= 0x20 && opcode <= 0x24:
			off, err = skipLEB(fb, off)
		case opcode >= 0x28 && opcode <= 0x3E:
			off, err = skipLEB(fb, off)
			if err == nil {
				off, err = skipLEB(fb, off)
			}
			isFloat = opcode == 0x2A || opcode == 0x2B || opcode == 0x38 || opcode == 0x39
		case opcode == 0x3F || opcode == 0x40:
			off++
		case opcode == 0x41 || opcode == 0x42:
			off, err = skipLEB(fb, off)
		case opcode == 0x43:
			off += 4
			isFloat = true
		case opcode == 0x44:
			off += 8
			isFloat = true
		case opcode >= 0x45 && opcode <= 0x5A:
			// i32/i64 comparisons, no immediate
		case opcode >= 0x5B && opcode <= 0x66:
			isFloat = true
		case opcode >= 0x67 && opcode <= 0x8A:
			// i32/i64 numeric ops, no immediate
		case opcode >= 0x8B && opcode <= 0xA6:
			isFloat = true
		case opcode == 0xA7 || opcode == 0xAC || opcode == 0xAD:
			// integer-only conversions: wrap, extend_s, extend_u
		case opcode >= 0xA8 && opcode <= 0xBF:
			isFloat = true
		case opcode >= 0xC0 && opcode <= 0xC4:
			// sign-extension ops, no immediate
		case opcode == 0xFC:
			_, off, err = readVarUint32(fb, off)
			isFloat = true
		default:
			return false, nil, fmt.Errorf("wasmhost: unrecognized opcode 0x%02x", opcode)
		}
		if err != nil {
			return false, nil, err
		}
		if isFloat {
			usesFloat = true
		}
		instrCount++
		if isBoundary || off >= len(fb) {
			blocks = append(blocks, block{Start: blockStart, End: off, InstrCount: instrCount})
			blockStart = off
			instrCount = 0
		}
	}
	return usesFloat, blocks, nil
}

// skipBlockType advances past a block-type immediate: either the
// single byte 0x40 (empty), a single-byte value-type, or a (possibly
// multi-byte) signed LEB128 type index. All three shapes use the same
// LEB128 continuation-bit mechanism, so skipLEB handles every case.
func skipBlockType(b []byte, off int) (int, error) {
	return skipLEB(b, off)
}

func readVarUint32(b []byte, off int) (uint32, int, error) {
	var result uint32
	var shift uint
	for {
		if off >= len(b) {
			return 0, 0, fmt.Errorf("wasmhost: truncated varuint32")
		}
		c := b[off]
		off++
		result |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, fmt.Errorf("wasmhost: varuint32 too long")
		}
	}
	return result, off, nil
}

func readString(b []byte, off int) (string, int, error) {
	n, next, err := readVarUint32(b, off)
	if err != nil {
		return "", 0, err
	}
	if next+int(n) > len(b) {
		return "", 0, fmt.Errorf("wasmhost: truncated string")
	}
	return string(b[next : next+int(n)]), next + int(n), nil
}

// writeVarUint32 appends the unsigned LEB128 encoding of v to buf.
func writeVarUint32(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

// assembleModule reassembles a module from its magic/version header and
// an ordered section list, each prefixed with a freshly computed size.
func assembleModule(sections []rawSection) []byte {
	out := make([]byte, 0, 8)
	out = append(out, wasmMagic[:]...)
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version 1
	for _, s := range sections {
		out = append(out, s.id)
		out = writeVarUint32(out, uint32(len(s.body)))
		out = append(out, s.body...)
	}
	return out
}

// skipLEB advances past one LEB128-encoded integer (signed or
// unsigned; both use the same continuation-bit convention) without
// decoding its value.
func skipLEB(b []byte, off int) (int, error) {
	for {
		if off >= len(b) {
			return 0, fmt.Errorf("wasmhost: truncated LEB128")
		}
		c := b[off]
		off++
		if c&0x80 == 0 {
			return off, nil
		}
	}
}
