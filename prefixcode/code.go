package prefixcode

import "sort"

// MinSymbols and MaxSymbols bound the alphabet size accepted by
// BuildCanonicalCode. Real callers use much smaller alphabets (LZX's largest
// is a few hundred symbols); the upper bound just keeps the symbol id space
// well clear of anything a caller could plausibly need.
const (
	MinSymbols = 2
	MaxSymbols = 1024
)

// BuildCanonicalCode constructs a length-limited canonical prefix code for
// the given symbol frequencies. len(freqs) must be in [MinSymbols,
// MaxSymbols]; maxCodewordLen must be large enough for the alphabet (the
// caller picks this per format, e.g. 16 for LZX, 15 for LZMS).
//
// Symbols with zero frequency get length 0 and are excluded from the code.
// The returned codewords are right-justified; codewords for zero-length
// symbols are undefined and should not be used.
func BuildCanonicalCode(freqs []uint32, maxCodewordLen int) (lens []uint8, codewords []uint16) {
	numSyms := len(freqs)
	lens = make([]uint8, numSyms)
	codewords = make([]uint16, numSyms)

	sortedSyms, sortedFreqs := sortSymbols(freqs, lens)
	numUsed := len(sortedSyms)

	switch numUsed {
	case 0:
		// All frequencies were zero; lens is already all-zero.
		return lens, codewords
	case 1:
		// A single used symbol still needs a two-codeword canonical
		// code, so borrow a second symbol id to pair it with. The
		// lower-valued of the two gets codeword 0.
		lo, hi := uint32(0), sortedSyms[0]
		if hi == 0 {
			hi = 1
		}
		lens[lo] = 1
		codewords[lo] = 0
		lens[hi] = 1
		codewords[hi] = 1
		return lens, codewords
	}

	a := make([]uint32, numUsed)
	copy(a, sortedFreqs)
	rootIdx := numUsed - 2
	buildTree(a, numUsed)

	lenCounts := make([]int, maxCodewordLen+1)
	computeLengthCounts(a, rootIdx, lenCounts, maxCodewordLen)
	genCodewords(sortedSyms, lens, codewords, lenCounts, maxCodewordLen)

	return lens, codewords
}

// sortSymbols returns the symbols with nonzero frequency, sorted primarily
// by ascending frequency and secondarily by ascending symbol id, along with
// their frequencies in the same order. It sets lens[sym] = 0 for every
// zero-frequency symbol.
//
// The C original does this with a bucketed counting sort over a handful of
// counters plus a heapsort of the overflow bucket, as an optimization for
// the common case of mostly-small frequencies; that bucketing is a speed
// hint the spec explicitly calls out as unobservable, so a plain stable sort
// is used here.
func sortSymbols(freqs []uint32, lens []uint8) (syms []uint32, sortedFreqs []uint32) {
	type entry struct {
		sym  uint32
		freq uint32
	}
	entries := make([]entry, 0, len(freqs))
	for sym, freq := range freqs {
		if freq == 0 {
			lens[sym] = 0
			continue
		}
		entries = append(entries, entry{sym: uint32(sym), freq: freq})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].freq != entries[j].freq {
			return entries[i].freq < entries[j].freq
		}
		return entries[i].sym < entries[j].sym
	})
	syms = make([]uint32, len(entries))
	sortedFreqs = make([]uint32, len(entries))
	for i, e := range entries {
		syms[i] = e.sym
		sortedFreqs[i] = e.freq
	}
	return syms, sortedFreqs
}

// buildTree builds a stripped-down Huffman tree in place over a symbols
// worth of frequencies, sorted ascending. Only the internal nodes are
// produced (sufficient to derive a canonical code); each entry a[k] for k <
// symCount-2 ends up holding the index of its parent node, and the root,
// a[symCount-2], holds the total frequency. a[symCount-1] only ever holds a
// leaf (and then that leaf's parent index), so its final value is never
// read.
//
// a must have length symCount, and symCount must be at least 2.
func buildTree(a []uint32, symCount int) {
	i, b, e := 0, 0, 0
	for {
		var m, n int
		if i != symCount && (b == e || a[i] <= a[b]) {
			m, i = i, i+1
		} else {
			m, b = b, b+1
		}
		if i != symCount && (b == e || a[i] <= a[b]) {
			n, i = i, i+1
		} else {
			n, b = b, b+1
		}
		freq := a[m] + a[n]
		a[m] = uint32(e)
		a[n] = uint32(e)
		a[e] = freq
		e++
		if symCount-e <= 1 {
			return
		}
	}
}

// computeLengthCounts walks the tree built by buildTree from the root
// downward (which, since every parent sits at a higher index than its
// children, means iterating the array in reverse), turning each node's parent-index
// field into a depth, and tallies how many codewords will end up at each
// length once the length-limiting cap is applied.
func computeLengthCounts(a []uint32, rootIdx int, lenCounts []int, maxCodewordLen int) {
	for i := range lenCounts {
		lenCounts[i] = 0
	}
	lenCounts[1] = 2

	a[rootIdx] = 0
	for node := rootIdx - 1; node >= 0; node-- {
		parent := int(a[node])
		parentDepth := int(a[parent])
		depth := parentDepth + 1
		length := depth
		a[node] = uint32(depth)

		if length >= maxCodewordLen {
			length = maxCodewordLen
			for {
				length--
				if lenCounts[length] != 0 {
					break
				}
			}
		}
		lenCounts[length]--
		lenCounts[length+1] += 2
	}
}

// genCodewords assigns codeword lengths and canonical codewords to symbols.
// sortedSyms is the symbol order produced by sortSymbols; lenCounts is the
// per-length tally produced by computeLengthCounts.
func genCodewords(sortedSyms []uint32, lens []uint8, codewords []uint16, lenCounts []int, maxCodewordLen int) {
	i := 0
	for length := maxCodewordLen; length >= 1; length-- {
		count := lenCounts[length]
		for ; count > 0; count-- {
			lens[sortedSyms[i]] = uint8(length)
			i++
		}
	}

	nextCodeword := make([]uint32, maxCodewordLen+1)
	nextCodeword[0] = 0
	if maxCodewordLen >= 1 {
		nextCodeword[1] = 0
	}
	for length := 2; length <= maxCodewordLen; length++ {
		nextCodeword[length] = (nextCodeword[length-1] + uint32(lenCounts[length-1])) << 1
	}

	// Assign in symbol id order so that equal-length codewords ascend with
	// the symbol id, which is what makes the code canonical.
	for sym, l := range lens {
		if l == 0 {
			continue
		}
		codewords[sym] = uint16(nextCodeword[l])
		nextCodeword[l]++
	}
}
