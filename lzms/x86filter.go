package lzms

import "encoding/binary"

// The x86 filter only considers a translation candidate when the 16-bit
// "target window" it read is within one of these two spans of the
// instruction it's examining; the window sizes trade off how often
// genuinely unrelated 32-bit values get mistaken for translatable
// addresses against how many real cross-references get caught. Call-rel
// gets half the window of the load/LEA/lock-add/call-indirect forms.
const (
	x86MaxTranslationOffset = 1 << 16
	x86MaxGoodTargetOffset  = 1 << 15
)

// LastTargetUsagesSize is the required length of the scratch array passed
// to X86Filter.
const LastTargetUsagesSize = 1 << 16

// classifyX86Opcode inspects the (at least 3) bytes at p and decides
// whether they begin a translatable x86 instruction. It returns the byte
// offset from the start of the instruction to the little-endian 32-bit
// operand (or, for non-translatable forms, how many bytes to skip), and
// the maximum translation offset for the form (0 meaning "not
// translatable").
func classifyX86Opcode(p []byte) (operandOffset int, maxTransOffset int) {
	switch p[0] {
	case 0x48:
		if p[1] == 0x8b && (p[2] == 0x05 || p[2] == 0x0d) {
			return 3, x86MaxTranslationOffset // load relative (x86_64)
		}
		if p[1] == 0x8d && (p[2]&0x7) == 0x5 {
			return 3, x86MaxTranslationOffset // lea relative (x86_64)
		}
	case 0x4c:
		if p[1] == 0x8d && (p[2]&0x7) == 0x5 {
			return 3, x86MaxTranslationOffset // lea relative (x86_64)
		}
	case 0xe8:
		return 1, x86MaxTranslationOffset / 2 // call relative
	case 0xe9:
		return 5, 0 // jump relative: classified, but never translated
	case 0xf0:
		if p[1] == 0x83 && p[2] == 0x05 {
			return 3, x86MaxTranslationOffset // lock add relative
		}
	case 0xff:
		if p[1] == 0x15 {
			return 2, x86MaxTranslationOffset // call indirect
		}
	}
	return 1, 0
}

// maybeTranslateX86 applies (or, if undo, reverses) the address
// translation for one instruction found at data[i], if the instruction's
// target window falls close enough to the last similar target seen. It
// returns the index to resume the scan from.
//
// The 16-bit target window used to decide whether to translate is always
// read from the pre-translation form of the operand: on encode, before the
// operand is rewritten; on undo, after it has been restored. This keeps
// the bookkeeping (closestTargetUsage, lastTargetUsages) identical between
// the forward and reverse passes, which is what makes the filter its own
// inverse.
func maybeTranslateX86(data []byte, i, operandOffset int, closestTargetUsage *int, lastTargetUsages []int32, maxTransOffset int, undo bool) int {
	operand := data[i+operandOffset : i+operandOffset+4]

	var pos int
	if undo {
		if i-*closestTargetUsage <= maxTransOffset {
			n := int32(binary.LittleEndian.Uint32(operand))
			binary.LittleEndian.PutUint32(operand, uint32(n-int32(i)))
		}
		pos = (i + int(binary.LittleEndian.Uint16(operand))) & (LastTargetUsagesSize - 1)
	} else {
		pos = (i + int(binary.LittleEndian.Uint16(operand))) & (LastTargetUsagesSize - 1)
		if i-*closestTargetUsage <= maxTransOffset {
			n := int32(binary.LittleEndian.Uint32(operand))
			binary.LittleEndian.PutUint32(operand, uint32(n+int32(i)))
		}
	}

	i += operandOffset + 4 - 1

	if i-int(lastTargetUsages[pos]) <= x86MaxGoodTargetOffset {
		*closestTargetUsage = i
	}
	lastTargetUsages[pos] = int32(i)

	return i + 1
}

// X86Filter rewrites (undo == false) or restores (undo == true) relative
// addresses embedded in x86 instructions found in data, to improve the
// compressibility of executable code. Applying the filter with undo=false
// and then undo=true restores the original bytes exactly.
//
// lastTargetUsages is caller-supplied scratch space of length
// LastTargetUsagesSize; its contents on entry are irrelevant, and it is
// fully reinitialised by this call.
func X86Filter(data []byte, lastTargetUsages []int32, undo bool) {
	closestTargetUsage := -x86MaxTranslationOffset - 1
	for i := range lastTargetUsages {
		lastTargetUsages[i] = int32(-x86MaxGoodTargetOffset - 1)
	}

	size := len(data)
	for i := 0; i < size-11; {
		operandOffset, maxTransOffset := classifyX86Opcode(data[i : i+3])
		if maxTransOffset != 0 {
			i = maybeTranslateX86(data, i, operandOffset, &closestTargetUsage, lastTargetUsages, maxTransOffset, undo)
		} else {
			i += operandOffset
		}
	}
}
