// Package prefixcode builds and consumes canonical prefix (Huffman) codes of
// the kind used by the LZX, XPRESS and LZMS chunk formats: given per-symbol
// frequencies, construct a length-limited canonical code, and given
// per-symbol codeword lengths, build a fast table-driven decoder.
//
// Both halves are reentrant and keep no package-level state, so many chunk
// decoders can run concurrently without coordination. Neither takes a
// caller-supplied buffer: each call allocates its own working space and
// returns freshly allocated results.
package prefixcode
