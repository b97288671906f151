// Package lzms provides state shared between an LZMS encoder and decoder:
// the position/length slot-base tables, the x86 executable-code byte
// filter, and the least-recently-used offset queues that back LZMS's
// adaptive match-offset coding.
//
// None of this package performs entropy coding itself; it supplies the
// deterministic tables and bookkeeping structures that both directions of
// an LZMS codec need to agree on.
package lzms
