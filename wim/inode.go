package wim

// Windows file attribute bits relevant to the dentry codec. Only the ones
// the codec itself branches on are named here; callers that need the full
// set define their own constants against the same bitmask.
const (
	AttrReadOnly     = 0x00000001
	AttrHidden       = 0x00000002
	AttrSystem       = 0x00000004
	AttrDirectory    = 0x00000010
	AttrArchive      = 0x00000020
	AttrReparsePoint = 0x00000400
	AttrCompressed   = 0x00000800
	AttrEncrypted    = 0x00004000
)

// StreamType classifies one of an inode's data streams, assigned by
// assignStreamTypes according to the heuristics in §4.C.3.
type StreamType int

const (
	// StreamUntyped is the zero value: a stream that assignStreamTypes
	// left unclassified. That covers every stream of an encrypted inode
	// other than its EFSRPC stream, and any unnamed stream of an ordinary
	// inode beyond the ones chosen as its reparse and data streams.
	StreamUntyped StreamType = iota
	StreamData
	StreamReparsePoint
	StreamEFSRPCRawData
)

func (t StreamType) String() string {
	switch t {
	case StreamData:
		return "DATA"
	case StreamReparsePoint:
		return "REPARSE_POINT"
	case StreamEFSRPCRawData:
		return "EFSRPC_RAW_DATA"
	default:
		return "UNTYPED"
	}
}

// Stream is one data stream belonging to an inode: the default (unnamed)
// data or reparse stream, a named alternate data stream, or (for encrypted
// files) the single raw EFS stream. The dentry codec identifies a stream's
// content only by its hash; resolving that hash to bytes is the
// BlobProvider's job.
type Stream struct {
	Name string
	Hash SHA1Hash
	Type StreamType
}

// Inode is the file identity a Dentry links to: its attributes, security
// descriptor reference, timestamps, data streams and extra metadata tags.
//
// Hard links share a HardLinkGroupID on disk, but this codec does not
// consolidate dentries with a matching group id into one shared Inode
// value across a tree the way a full WIM image reader eventually must;
// nothing in the dentry/tree contract (§4.C, §4.D) actually requires that
// consolidation, only that the group id field round-trips, so each Dentry
// owns its own Inode and callers that need hard-link-aware deduplication
// build it on top by comparing HardLinkGroupID.
type Inode struct {
	Attributes   uint32
	SecurityID   int32 // -1 = none
	SubdirOffset int64 // on-disk bookkeeping; recomputed on emit
	Creation     FileTime
	LastAccess   FileTime
	LastWrite    FileTime

	// HardLinkGroupID is meaningful only when the reparse-point
	// attribute bit is clear; when it is set, ReparseTag and
	// ReparseNotFixed apply instead (per the open question in DESIGN
	// NOTES, whichever the attribute bit selects wins even if the
	// other field also looks populated on disk).
	HardLinkGroupID int64
	ReparseTag      uint32
	ReparseNotFixed uint16

	Streams []Stream
	Extra   []Tag
}

// IsDirectory reports whether the inode's attributes mark it as a
// directory.
func (n *Inode) IsDirectory() bool {
	return n.Attributes&AttrDirectory != 0
}

// IsReparsePoint reports whether the inode's attributes mark it as a
// reparse point.
func (n *Inode) IsReparsePoint() bool {
	return n.Attributes&AttrReparsePoint != 0
}

// IsEncrypted reports whether the inode's attributes mark it as
// encrypted.
func (n *Inode) IsEncrypted() bool {
	return n.Attributes&AttrEncrypted != 0
}

// DefaultHash returns the hash of the inode's first unnamed stream typed
// as reparse-point or data (for an encrypted inode, its EFSRPC stream),
// whether that stream came from the record's default_hash field or from an
// extra stream entry. It returns the zero hash if there is no such stream.
func (n *Inode) DefaultHash() SHA1Hash {
	if n.IsEncrypted() {
		for _, s := range n.Streams {
			if s.Type == StreamEFSRPCRawData {
				return s.Hash
			}
		}
		return SHA1Hash{}
	}
	for _, s := range n.Streams {
		if s.Name == "" && (s.Type == StreamReparsePoint || s.Type == StreamData) {
			return s.Hash
		}
	}
	return SHA1Hash{}
}
