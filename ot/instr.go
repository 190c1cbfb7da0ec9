package ot

import (
	"fmt"
	"strconv"
	"strings"
)

// ProgramTable is the decoded form of 'fpgm' and 'prep': a TrueType
// instruction stream with no inner structure beyond the bytecode itself.
type ProgramTable struct {
	tableBase
	Instructions []byte
}

func newProgramTable(tag Tag, b binarySegm, offset, size uint32) *ProgramTable {
	t := &ProgramTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

func parseProgram(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	t := newProgramTable(tag, b, offset, size)
	t.Instructions = make([]byte, size)
	copy(t.Instructions, b)
	return t, nil
}

// Encode returns the bytecode verbatim.
func (t *ProgramTable) Encode() ([]byte, error) {
	if t.Instructions == nil {
		return []byte{}, nil
	}
	return t.Instructions, nil
}

// --- Instruction codec -----------------------------------------------------
//
// Disassembly renders one instruction per line: the mnemonic with its flag
// bits in brackets (`MIRP[01101]`, `DUP[ ]`), push instructions with their
// values inline (`PUSHB[ ] 45 12`), and unassigned opcodes in a hex form
// (`OPCODE[0xA3]`) that assembles back to the same byte. Push counts are
// derived from the number of inline values, so the stream survives the
// round trip byte for byte.

const (
	opNPUSHB = 0x40
	opNPUSHW = 0x41
	opPUSHB  = 0xB0
	opPUSHW  = 0xB8
)

type opcodeInfo struct {
	mnemonic string
	argBits  int
	base     byte
}

var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() [256]opcodeInfo {
	var table [256]opcodeInfo
	set := func(base int, argBits int, mnemonic string) {
		for i := 0; i < 1<<argBits; i++ {
			table[base+i] = opcodeInfo{mnemonic: mnemonic, argBits: argBits, base: byte(base)}
		}
	}
	set(0x00, 1, "SVTCA")
	set(0x02, 1, "SPVTCA")
	set(0x04, 1, "SFVTCA")
	set(0x06, 1, "SPVTL")
	set(0x08, 1, "SFVTL")
	set(0x0A, 0, "SPVFS")
	set(0x0B, 0, "SFVFS")
	set(0x0C, 0, "GPV")
	set(0x0D, 0, "GFV")
	set(0x0E, 0, "SFVTPV")
	set(0x0F, 0, "ISECT")
	set(0x10, 0, "SRP0")
	set(0x11, 0, "SRP1")
	set(0x12, 0, "SRP2")
	set(0x13, 0, "SZP0")
	set(0x14, 0, "SZP1")
	set(0x15, 0, "SZP2")
	set(0x16, 0, "SZPS")
	set(0x17, 0, "SLOOP")
	set(0x18, 0, "RTG")
	set(0x19, 0, "RTHG")
	set(0x1A, 0, "SMD")
	set(0x1B, 0, "ELSE")
	set(0x1C, 0, "JMPR")
	set(0x1D, 0, "SCVTCI")
	set(0x1E, 0, "SSWCI")
	set(0x1F, 0, "SSW")
	set(0x20, 0, "DUP")
	set(0x21, 0, "POP")
	set(0x22, 0, "CLEAR")
	set(0x23, 0, "SWAP")
	set(0x24, 0, "DEPTH")
	set(0x25, 0, "CINDEX")
	set(0x26, 0, "MINDEX")
	set(0x27, 0, "ALIGNPTS")
	set(0x29, 0, "UTP")
	set(0x2A, 0, "LOOPCALL")
	set(0x2B, 0, "CALL")
	set(0x2C, 0, "FDEF")
	set(0x2D, 0, "ENDF")
	set(0x2E, 1, "MDAP")
	set(0x30, 1, "IUP")
	set(0x32, 1, "SHP")
	set(0x34, 1, "SHC")
	set(0x36, 1, "SHZ")
	set(0x38, 0, "SHPIX")
	set(0x39, 0, "IP")
	set(0x3A, 1, "MSIRP")
	set(0x3C, 0, "ALIGNRP")
	set(0x3D, 0, "RTDG")
	set(0x3E, 1, "MIAP")
	set(0x40, 0, "NPUSHB")
	set(0x41, 0, "NPUSHW")
	set(0x42, 0, "WS")
	set(0x43, 0, "RS")
	set(0x44, 0, "WCVTP")
	set(0x45, 0, "RCVT")
	set(0x46, 1, "GC")
	set(0x48, 0, "SCFS")
	set(0x49, 1, "MD")
	set(0x4B, 0, "MPPEM")
	set(0x4C, 0, "MPS")
	set(0x4D, 0, "FLIPON")
	set(0x4E, 0, "FLIPOFF")
	set(0x4F, 0, "DEBUG")
	set(0x50, 0, "LT")
	set(0x51, 0, "LTEQ")
	set(0x52, 0, "GT")
	set(0x53, 0, "GTEQ")
	set(0x54, 0, "EQ")
	set(0x55, 0, "NEQ")
	set(0x56, 0, "ODD")
	set(0x57, 0, "EVEN")
	set(0x58, 0, "IF")
	set(0x59, 0, "EIF")
	set(0x5A, 0, "AND")
	set(0x5B, 0, "OR")
	set(0x5C, 0, "NOT")
	set(0x5D, 0, "DELTAP1")
	set(0x5E, 0, "SDB")
	set(0x5F, 0, "SDS")
	set(0x60, 0, "ADD")
	set(0x61, 0, "SUB")
	set(0x62, 0, "DIV")
	set(0x63, 0, "MUL")
	set(0x64, 0, "ABS")
	set(0x65, 0, "NEG")
	set(0x66, 0, "FLOOR")
	set(0x67, 0, "CEILING")
	set(0x68, 2, "ROUND")
	set(0x6C, 2, "NROUND")
	set(0x70, 0, "WCVTF")
	set(0x71, 0, "DELTAP2")
	set(0x72, 0, "DELTAP3")
	set(0x73, 0, "DELTAC1")
	set(0x74, 0, "DELTAC2")
	set(0x75, 0, "DELTAC3")
	set(0x76, 0, "SROUND")
	set(0x77, 0, "S45ROUND")
	set(0x78, 0, "JROT")
	set(0x79, 0, "JROF")
	set(0x7A, 0, "ROFF")
	set(0x7C, 0, "RUTG")
	set(0x7D, 0, "RDTG")
	set(0x7E, 0, "SANGW")
	set(0x7F, 0, "AA")
	set(0x80, 0, "FLIPPT")
	set(0x81, 0, "FLIPRGON")
	set(0x82, 0, "FLIPRGOFF")
	set(0x85, 0, "SCANCTRL")
	set(0x86, 1, "SDPVTL")
	set(0x88, 0, "GETINFO")
	set(0x89, 0, "IDEF")
	set(0x8A, 0, "ROLL")
	set(0x8B, 0, "MAX")
	set(0x8C, 0, "MIN")
	set(0x8D, 0, "SCANTYPE")
	set(0x8E, 0, "INSTCTRL")
	set(0x91, 0, "GETVARIATION")
	set(0xB0, 3, "PUSHB")
	set(0xB8, 3, "PUSHW")
	set(0xC0, 5, "MDRP")
	set(0xE0, 5, "MIRP")
	return table
}

var mnemonicTable = buildMnemonicTable()

func buildMnemonicTable() map[string]opcodeInfo {
	m := make(map[string]opcodeInfo)
	for op := 0; op < 256; op++ {
		info := opcodeTable[op]
		if info.mnemonic == "" {
			continue
		}
		if _, seen := m[info.mnemonic]; !seen {
			m[info.mnemonic] = info
		}
	}
	return m
}

func flagBits(v, bits int) string {
	s := strconv.FormatInt(int64(v), 2)
	for len(s) < bits {
		s = "0" + s
	}
	return s
}

// DisassembleInstructions renders TrueType bytecode as assembly text. A
// stream that ends in the middle of a push instruction cannot be rendered
// and reports ErrMalformedTable; callers fall back to a hex dump then.
func DisassembleInstructions(code []byte) (string, error) {
	var sb strings.Builder
	i := 0
	writePush := func(mnemonic string, values []int) {
		sb.WriteString(mnemonic)
		sb.WriteString("[ ]")
		for _, v := range values {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(v))
		}
		sb.WriteByte('\n')
	}
	readBytes := func(n int) ([]int, error) {
		if i+n > len(code) {
			return nil, fmt.Errorf("%w: instruction stream ends inside push data", ErrMalformedTable)
		}
		values := make([]int, n)
		for k := 0; k < n; k++ {
			values[k] = int(code[i+k])
		}
		i += n
		return values, nil
	}
	readWords := func(n int) ([]int, error) {
		if i+2*n > len(code) {
			return nil, fmt.Errorf("%w: instruction stream ends inside push data", ErrMalformedTable)
		}
		values := make([]int, n)
		for k := 0; k < n; k++ {
			values[k] = int(int16(u16(code[i+2*k:])))
		}
		i += 2 * n
		return values, nil
	}
	for i < len(code) {
		op := code[i]
		i++
		switch {
		case op == opNPUSHB || op == opNPUSHW:
			if i >= len(code) {
				return "", fmt.Errorf("%w: instruction stream ends before push count", ErrMalformedTable)
			}
			n := int(code[i])
			i++
			var values []int
			var err error
			if op == opNPUSHB {
				values, err = readBytes(n)
			} else {
				values, err = readWords(n)
			}
			if err != nil {
				return "", err
			}
			writePush(opcodeTable[op].mnemonic, values)
		case op >= opPUSHB && op < opPUSHB+8:
			values, err := readBytes(int(op-opPUSHB) + 1)
			if err != nil {
				return "", err
			}
			writePush("PUSHB", values)
		case op >= opPUSHW && op < opPUSHW+8:
			values, err := readWords(int(op-opPUSHW) + 1)
			if err != nil {
				return "", err
			}
			writePush("PUSHW", values)
		default:
			info := opcodeTable[op]
			if info.mnemonic == "" {
				fmt.Fprintf(&sb, "OPCODE[0x%02X]\n", op)
			} else if info.argBits == 0 {
				sb.WriteString(info.mnemonic)
				sb.WriteString("[ ]\n")
			} else {
				sb.WriteString(info.mnemonic)
				sb.WriteByte('[')
				sb.WriteString(flagBits(int(op-info.base), info.argBits))
				sb.WriteString("]\n")
			}
		}
	}
	return sb.String(), nil
}

// stripComments removes /* ... */ spans from an assembly line. Unterminated
// comments run to the end of the line.
func stripComments(line string) string {
	for {
		start := strings.Index(line, "/*")
		if start < 0 {
			return line
		}
		end := strings.Index(line[start+2:], "*/")
		if end < 0 {
			return line[:start]
		}
		line = line[:start] + " " + line[start+2+end+2:]
	}
}

func splitInstructionLine(line string) (mnemonic, flags string, values []string, err error) {
	open := strings.IndexByte(line, '[')
	if open < 0 {
		return "", "", nil, fmt.Errorf("%w: instruction %q has no flag brackets", ErrInvalidFieldValue, line)
	}
	closing := strings.IndexByte(line[open:], ']')
	if closing < 0 {
		return "", "", nil, fmt.Errorf("%w: instruction %q has no closing bracket", ErrInvalidFieldValue, line)
	}
	mnemonic = strings.TrimSpace(line[:open])
	flags = strings.TrimSpace(line[open+1 : open+closing])
	values = strings.Fields(line[open+closing+1:])
	if mnemonic == "" {
		return "", "", nil, fmt.Errorf("%w: instruction %q has no mnemonic", ErrInvalidFieldValue, line)
	}
	return mnemonic, flags, values, nil
}

func assemblePush(w *binaryWriter, mnemonic string, values []string) error {
	words := mnemonic == "PUSHW" || mnemonic == "NPUSHW"
	parsed := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: push value %q", ErrInvalidFieldValue, v)
		}
		if words {
			if n < -32768 || n > 32767 {
				return fmt.Errorf("%w: push value %d does not fit int16", ErrOutOfRange, n)
			}
		} else if n < 0 || n > 255 {
			return fmt.Errorf("%w: push value %d does not fit byte", ErrOutOfRange, n)
		}
		parsed[i] = n
	}
	n := len(parsed)
	switch mnemonic {
	case "PUSHB", "PUSHW":
		if n < 1 || n > 8 {
			return fmt.Errorf("%w: %s takes 1 to 8 values, got %d", ErrInvalidFieldValue, mnemonic, n)
		}
		if words {
			w.u8(opPUSHW + byte(n-1))
		} else {
			w.u8(opPUSHB + byte(n-1))
		}
	case "NPUSHB", "NPUSHW":
		if n > 255 {
			return fmt.Errorf("%w: %s takes at most 255 values, got %d", ErrInvalidFieldValue, mnemonic, n)
		}
		if words {
			w.u8(opNPUSHW)
		} else {
			w.u8(opNPUSHB)
		}
		w.u8(byte(n))
	}
	for _, v := range parsed {
		if words {
			w.i16(int16(v))
		} else {
			w.u8(byte(v))
		}
	}
	return nil
}

// AssembleInstructions parses assembly text back into TrueType bytecode.
// It accepts exactly the dialect DisassembleInstructions emits, plus
// blank lines and /* ... */ comments.
func AssembleInstructions(asm string) ([]byte, error) {
	w := newBinaryWriter(len(asm) / 4)
	for _, rawLine := range strings.Split(asm, "\n") {
		line := strings.TrimSpace(stripComments(rawLine))
		if line == "" {
			continue
		}
		mnemonic, flags, values, err := splitInstructionLine(line)
		if err != nil {
			return nil, err
		}
		switch mnemonic {
		case "PUSHB", "PUSHW", "NPUSHB", "NPUSHW":
			if err := assemblePush(w, mnemonic, values); err != nil {
				return nil, err
			}
			continue
		case "OPCODE":
			op, err := strconv.ParseUint(strings.TrimPrefix(flags, "0x"), 16, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: opcode %q", ErrInvalidFieldValue, flags)
			}
			w.u8(byte(op))
			continue
		}
		info, ok := mnemonicTable[mnemonic]
		if !ok {
			return nil, fmt.Errorf("%w: unknown instruction %q", ErrInvalidFieldValue, mnemonic)
		}
		if len(values) > 0 {
			return nil, fmt.Errorf("%w: %s takes no inline values", ErrInvalidFieldValue, mnemonic)
		}
		variant := 0
		if info.argBits > 0 {
			if len(flags) != info.argBits {
				return nil, fmt.Errorf("%w: %s needs %d flag bits, got %q",
					ErrInvalidFieldValue, mnemonic, info.argBits, flags)
			}
			v, err := strconv.ParseUint(flags, 2, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: flag bits %q", ErrInvalidFieldValue, flags)
			}
			variant = int(v)
		} else if flags != "" {
			return nil, fmt.Errorf("%w: %s takes no flag bits, got %q", ErrInvalidFieldValue, mnemonic, flags)
		}
		w.u8(info.base + byte(variant))
	}
	return w.bytes(), nil
}
