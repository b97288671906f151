package prefixcode

import "github.com/pkg/errors"

// ErrInvalidCode is returned by BuildDecodeTable when a set of codeword
// lengths does not describe a valid prefix code: either the lengths
// overflow the codespace, or they leave it incomplete without being empty.
var ErrInvalidCode = errors.New("prefixcode: lengths do not form a valid prefix code")

// Entry is the packed representation of one decode table slot: either a
// leaf (symbol, codeword length) or a pointer to a subtable (subtable
// start offset, subtable bit count). The two kinds are distinguished by a
// dedicated flag bit, not by comparing the length field against RootBits:
// a subtable can legitimately need fewer bits than the root table, so a
// pointer's length-shaped field can be numerically smaller than, equal
// to, or larger than RootBits.
//
// The bit layout is not part of any external contract; callers only ever
// see decoded (index, length) pairs via Entry.Decode and Entry.IsPointer.
type Entry uint32

const (
	entryLengthBits = 6
	entryLengthMask = 1<<entryLengthBits - 1
	entryPointerBit = 1 << entryLengthBits
	entryIndexShift = entryLengthBits + 1
)

func makeLeafEntry(symbol uint32, length int) Entry {
	return Entry(symbol<<entryIndexShift | uint32(length)&entryLengthMask)
}

func makePointerEntry(subtableStart uint32, subtableBits int) Entry {
	return Entry(subtableStart<<entryIndexShift | entryPointerBit | uint32(subtableBits)&entryLengthMask)
}

// Decode splits a table entry into its index (a symbol id for a leaf, or a
// subtable start offset for a pointer) and its length (a codeword length in
// bits for a root-table leaf, the codeword bits beyond RootBits for a
// subtable leaf, or a subtable bit count for a pointer).
func (e Entry) Decode() (index uint32, length int) {
	return uint32(e) >> entryIndexShift, int(e) & entryLengthMask
}

// IsPointer reports whether e is a subtable pointer rather than a leaf.
func (e Entry) IsPointer() bool {
	return uint32(e)&entryPointerBit != 0
}

// DecodeTable is a table-driven canonical prefix code decoder built by
// BuildDecodeTable. Looking up the next RootBits of input in Root yields
// either a symbol directly, or a pointer into Subtable that must be indexed
// with additional input bits to reach the real symbol.
type DecodeTable struct {
	Root     []Entry
	Subtable []Entry
	RootBits int
}

// Lookup decodes one symbol given the next maxCodewordLen bits of input,
// right-justified in bits (bit 0 of the codeword is the high-order bit of
// this window). It returns the decoded symbol and its codeword length.
func (t *DecodeTable) Lookup(bits uint32, maxCodewordLen int) (sym uint32, length int) {
	rootIdx := bits >> uint(maxCodewordLen-t.RootBits)
	entry := t.Root[rootIdx]
	idx, l := entry.Decode()
	if !entry.IsPointer() {
		return idx, l
	}
	subtableBits := l
	shift := maxCodewordLen - t.RootBits - subtableBits
	subIdx := idx + ((bits >> uint(shift)) & (1<<uint(subtableBits) - 1))
	// Subtable leaves store only the bits past the root; add RootBits back
	// to report the full codeword length.
	sym, l = t.Subtable[subIdx].Decode()
	return sym, t.RootBits + l
}

// BuildDecodeTable builds a DecodeTable for the canonical prefix code
// described by lens (indexed by symbol; 0 means "unused"). rootBits must be
// <= maxCodewordLen, and every entry of lens must be <= maxCodewordLen.
//
// If lens describes an empty code (every symbol unused), the returned table
// always decodes symbol 0 with length 0 without consuming input — the
// contract a caller needs when it cannot yet assume the stream it is
// reading is well-formed. Any other incomplete or overflowing set of
// lengths is reported via ErrInvalidCode.
func BuildDecodeTable(lens []uint8, rootBits, maxCodewordLen int) (*DecodeTable, error) {
	numSyms := len(lens)

	lenCounts := make([]int, maxCodewordLen+1)
	for _, l := range lens {
		lenCounts[l]++
	}

	remainder := 1
	for length := 1; length <= maxCodewordLen; length++ {
		remainder = remainder<<1 - lenCounts[length]
		if remainder < 0 {
			return nil, errors.Wrap(ErrInvalidCode, "codespace overflow")
		}
	}

	root := make([]Entry, 1<<uint(rootBits))
	if remainder != 0 {
		if remainder != 1<<uint(maxCodewordLen) {
			return nil, errors.Wrap(ErrInvalidCode, "incomplete code")
		}
		// Empty code: the zero Entry already decodes to (0, 0).
		return &DecodeTable{Root: root, RootBits: rootBits}, nil
	}

	// Sort symbols primarily by ascending length, secondarily by
	// ascending id, via a counting sort keyed on length.
	offsets := make([]int, maxCodewordLen+2)
	for length := 0; length < maxCodewordLen; length++ {
		offsets[length+1] = offsets[length] + lenCounts[length]
	}
	cursor := append([]int(nil), offsets...)
	sortedSyms := make([]uint32, numSyms)
	for sym, l := range lens {
		sortedSyms[cursor[l]] = uint32(sym)
		cursor[l]++
	}

	// Fill the root table for codewords no longer than rootBits. Symbols
	// of length 0 sort first and are skipped by starting at offsets[1].
	symIdx := offsets[1]
	entryPos := 0
	codewordLen := 1
	for codewordLen <= rootBits {
		count := lenCounts[codewordLen]
		stride := 1 << uint(rootBits-codewordLen)
		for c := 0; c < count; c++ {
			e := makeLeafEntry(sortedSyms[symIdx], codewordLen)
			symIdx++
			for n := 0; n < stride; n++ {
				root[entryPos] = e
				entryPos++
			}
		}
		codewordLen++
	}

	if symIdx == numSyms {
		return &DecodeTable{Root: root, RootBits: rootBits}, nil
	}

	// At least one subtable is needed for the remaining, longer
	// codewords. codeword tracks the current codeword value in
	// lexicographic canonical order, at codewordLen bits.
	var subtable []Entry
	codeword := entryPos << 1
	subtablePrefix := -1
	subtableBits := 0
	subtableStart := 0

	for symIdx < numSyms {
		for lenCounts[codewordLen] == 0 {
			codewordLen++
			codeword <<= 1
		}

		prefix := codeword >> uint(codewordLen-rootBits)

		if prefix != subtablePrefix {
			subtablePrefix = prefix

			// The subtable needs at least 2^(codewordLen-rootBits)
			// entries; grow it by bringing in longer codewords
			// until it can be filled exactly. Completeness of the
			// overall code guarantees this terminates.
			subtableBits = codewordLen - rootBits
			rem := 1 << uint(subtableBits)
			for {
				rem -= lenCounts[rootBits+subtableBits]
				if rem <= 0 {
					break
				}
				subtableBits++
				rem <<= 1
			}

			subtableStart = len(subtable)
			subtable = append(subtable, make([]Entry, 1<<uint(subtableBits))...)
			root[subtablePrefix] = makePointerEntry(uint32(subtableStart), subtableBits)
		}

		e := makeLeafEntry(sortedSyms[symIdx], codewordLen-rootBits)
		n := 1 << uint(subtableBits-(codewordLen-rootBits))
		for i := 0; i < n; i++ {
			subtable[subtableStart] = e
			subtableStart++
		}

		lenCounts[codewordLen]--
		codeword++
		symIdx++
	}

	return &DecodeTable{Root: root, Subtable: subtable, RootBits: rootBits}, nil
}
