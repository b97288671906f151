package wim

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// rawDentryHeader is the 102-byte fixed portion of a dentry record, laid
// out exactly as it appears in a metadata resource. The reparse/hard-link
// union occupies the same 12 bytes read two different ways depending on
// Attributes, so it is decoded separately from the raw bytes rather than
// modeled as a Go union.
type rawDentryHeader struct {
	Length          int64
	Attributes      uint32
	SecurityID      int32
	SubdirOffset    int64
	Reserved1       uint64
	Reserved2       uint64
	CreationTime    FileTime
	LastAccessTime  FileTime
	LastWriteTime   FileTime
	DefaultHash     SHA1Hash
	ReparseOrLink   [12]byte
	NumExtraStreams uint16
	ShortNameLength uint16
	FileNameLength  uint16
}

const dentryHeaderSize = 102

// rawStreamHeader is the 38-byte fixed portion of an extra stream entry.
type rawStreamHeader struct {
	Length     int64
	Reserved   uint64
	Hash       SHA1Hash
	NameLength uint16
}

const streamHeaderSize = 38

func align8(n int64) int64 {
	return (n + 7) &^ 7
}

// decodedRecord is everything parseDentryRecord recovers from a single
// dentry record and its trailing extra stream entries: enough for the
// tree builder to construct a Dentry without re-touching the buffer.
type decodedRecord struct {
	consumed     int64
	name         string
	shortName    string
	inode        *Inode
	subdirOffset int64
}

// parseDentryRecord decodes one dentry record, including its chain of
// extra stream entries, starting at offset within buf. It returns the
// number of bytes consumed (the record's own 8-byte-aligned length plus
// its extra stream entries), so the caller can advance to the next
// sibling. All error returns are fatal per §4.C.2.
func parseDentryRecord(buf []byte, offset int64) (*decodedRecord, error) {
	if offset < 0 || offset+8 > int64(len(buf)) {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "dentry length field out of bounds")
	}
	length := align8(int64(binary.LittleEndian.Uint64(buf[offset:])))
	if length <= 8 {
		return nil, nil // end-of-siblings marker; caller checks for nil
	}
	if length < dentryHeaderSize {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "dentry length shorter than fixed header")
	}
	if offset+length > int64(len(buf)) || offset+length < offset {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "dentry length overruns buffer")
	}

	var hdr rawDentryHeader
	if err := binary.Read(bytes.NewReader(buf[offset:offset+dentryHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "dentry header: "+err.Error())
	}

	if hdr.ShortNameLength&1 != 0 || hdr.FileNameLength&1 != 0 {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "name length not divisible by 2")
	}

	minLen := int64(dentryHeaderSize)
	if hdr.FileNameLength != 0 {
		minLen += int64(hdr.FileNameLength) + 2
	}
	if hdr.ShortNameLength != 0 {
		minLen += int64(hdr.ShortNameLength) + 2
	}
	if length < minLen {
		return nil, errors.Wrap(ErrInvalidMetadataResource, "header length insufficient for declared name lengths")
	}

	inode := &Inode{
		Attributes:   hdr.Attributes,
		SecurityID:   hdr.SecurityID,
		SubdirOffset: hdr.SubdirOffset,
		Creation:     hdr.CreationTime,
		LastAccess:   hdr.LastAccessTime,
		LastWrite:    hdr.LastWriteTime,
	}
	if inode.IsReparsePoint() {
		inode.ReparseTag = binary.LittleEndian.Uint32(hdr.ReparseOrLink[4:8])
		inode.ReparseNotFixed = binary.LittleEndian.Uint16(hdr.ReparseOrLink[10:12])
	} else {
		inode.HardLinkGroupID = int64(binary.LittleEndian.Uint64(hdr.ReparseOrLink[4:12]))
	}

	p := offset + dentryHeaderSize
	var name, shortName string
	if hdr.FileNameLength != 0 {
		name = decodeUTF16LE(buf[p : p+int64(hdr.FileNameLength)])
		p += int64(hdr.FileNameLength) + 2
	}
	if hdr.ShortNameLength != 0 {
		shortName = decodeUTF16LE(buf[p : p+int64(hdr.ShortNameLength)])
		p += int64(hdr.ShortNameLength) + 2
	}

	blobStart := align8(p)
	var extra []Tag
	if blobStart < offset+length {
		var err error
		extra, err = DecodeTags(buf[blobStart : offset+length])
		if err != nil {
			return nil, errors.Wrap(ErrInvalidMetadataResource, err.Error())
		}
	}
	inode.Extra = extra

	streamsEnd, err := decodeStreams(buf, offset+length, inode, int(hdr.NumExtraStreams), hdr.DefaultHash)
	if err != nil {
		return nil, err
	}
	assignStreamTypes(inode)

	return &decodedRecord{
		consumed:     streamsEnd - offset,
		name:         name,
		shortName:    shortName,
		inode:        inode,
		subdirOffset: hdr.SubdirOffset,
	}, nil
}

func decodeStreams(buf []byte, offset int64, inode *Inode, numExtra int, defaultHash SHA1Hash) (int64, error) {
	inode.Streams = make([]Stream, 1+numExtra)
	inode.Streams[0] = Stream{Hash: defaultHash}

	p := offset
	for i := 1; i <= numExtra; i++ {
		if p+streamHeaderSize > int64(len(buf)) {
			return 0, errors.Wrap(ErrInvalidMetadataResource, "extra stream entry header truncated")
		}
		var shdr rawStreamHeader
		if err := binary.Read(bytes.NewReader(buf[p:p+streamHeaderSize]), binary.LittleEndian, &shdr); err != nil {
			return 0, errors.Wrap(ErrInvalidMetadataResource, "extra stream header: "+err.Error())
		}
		length := align8(shdr.Length)
		if length < streamHeaderSize || p+length > int64(len(buf)) {
			return 0, errors.Wrap(ErrInvalidMetadataResource, "extra stream entry length invalid")
		}
		if shdr.NameLength&1 != 0 {
			return 0, errors.Wrap(ErrInvalidMetadataResource, "stream name length not divisible by 2")
		}
		if int64(streamHeaderSize)+int64(shdr.NameLength) > length {
			return 0, errors.Wrap(ErrInvalidMetadataResource, "stream entry too short for declared name")
		}
		var name string
		if shdr.NameLength != 0 {
			namesStart := p + streamHeaderSize
			name = decodeUTF16LE(buf[namesStart : namesStart+int64(shdr.NameLength)])
		}
		inode.Streams[i] = Stream{Name: name, Hash: shdr.Hash}
		p += length
	}
	return p, nil
}

// assignStreamTypes implements §4.C.3.
func assignStreamTypes(inode *Inode) {
	if inode.IsEncrypted() {
		for i := range inode.Streams {
			s := &inode.Streams[i]
			if s.Name == "" && !s.Hash.IsZero() {
				s.Type = StreamEFSRPCRawData
				return
			}
		}
		return
	}

	var foundReparse, foundData bool
	var fallback *Stream
	for i := range inode.Streams {
		s := &inode.Streams[i]
		switch {
		case s.Name != "":
			s.Type = StreamData
		case !s.Hash.IsZero():
			if inode.IsReparsePoint() && !foundReparse {
				foundReparse = true
				s.Type = StreamReparsePoint
			} else if !foundData {
				foundData = true
				s.Type = StreamData
			}
		default:
			fallback = s
		}
	}
	if !foundData && fallback != nil {
		fallback.Type = StreamData
	}
}

func decodeUTF16LE(b []byte) string {
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u16))
}

func encodeUTF16LE(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u16))
	for i, u := range u16 {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

// encodeUTF16LEChecked encodes s and rejects it with ErrEncodingFailure if
// the encoding does not decode back to s exactly, e.g. a lone (unpaired)
// surrogate in s that utf16.Encode drops or replaces.
func encodeUTF16LEChecked(s string) ([]byte, error) {
	b := encodeUTF16LE(s)
	if decodeUTF16LE(b) != s {
		return nil, errors.Wrapf(ErrEncodingFailure, "name %q does not round-trip through UTF-16", s)
	}
	return b, nil
}

// encodeDentryRecord serializes d's fixed header, names and extra blob into
// a fresh, 8-byte-aligned buffer, followed by its 8-byte-aligned extra
// stream entries. The record's length field covers only the header, names
// and extra blob, not the stream entries.
// subdirOffset is the already-resolved absolute offset of d's children,
// or 0 for non-directories and empty directories.
func encodeDentryRecord(d *Dentry, subdirOffset int64) ([]byte, error) {
	inode := d.Inode
	var hdr rawDentryHeader
	hdr.Attributes = inode.Attributes
	hdr.SecurityID = inode.SecurityID
	hdr.SubdirOffset = subdirOffset
	hdr.CreationTime = inode.Creation
	hdr.LastAccessTime = inode.LastAccess
	hdr.LastWriteTime = inode.LastWrite

	extraStreams, defaultHash, numExtra := planStreamEmission(inode)
	hdr.DefaultHash = defaultHash
	hdr.NumExtraStreams = uint16(numExtra)

	if inode.IsReparsePoint() {
		binary.LittleEndian.PutUint32(hdr.ReparseOrLink[4:8], inode.ReparseTag)
		binary.LittleEndian.PutUint16(hdr.ReparseOrLink[10:12], inode.ReparseNotFixed)
	} else {
		binary.LittleEndian.PutUint64(hdr.ReparseOrLink[4:12], uint64(inode.HardLinkGroupID))
	}

	nameBytes, err := encodeUTF16LEChecked(d.Name)
	if err != nil {
		return nil, err
	}
	shortNameBytes, err := encodeUTF16LEChecked(d.ShortName)
	if err != nil {
		return nil, err
	}
	hdr.FileNameLength = uint16(len(nameBytes))
	hdr.ShortNameLength = uint16(len(shortNameBytes))

	extraBlob, err := EncodeTags(inode.Extra)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	binary.Write(body, binary.LittleEndian, &hdr)
	if len(nameBytes) > 0 {
		body.Write(nameBytes)
		body.Write([]byte{0, 0})
	}
	if len(shortNameBytes) > 0 {
		body.Write(shortNameBytes)
		body.Write([]byte{0, 0})
	}
	for int64(body.Len())&7 != 0 {
		body.WriteByte(0)
	}
	body.Write(extraBlob)
	for int64(body.Len())&7 != 0 {
		body.WriteByte(0)
	}

	full := body.Bytes()
	binary.LittleEndian.PutUint64(full[0:8], uint64(len(full)))

	out := append([]byte(nil), full...)
	for _, s := range extraStreams {
		out = append(out, encodeStreamEntry(s)...)
	}
	return out, nil
}

// planStreamEmission decides, per §4.C.4, whether the inode's streams fit
// in the record's default_hash field or need extra stream entries.
func planStreamEmission(inode *Inode) (extra []Stream, defaultHash SHA1Hash, numExtra int) {
	if inode.IsEncrypted() {
		for _, s := range inode.Streams {
			if s.Type == StreamEFSRPCRawData {
				return nil, s.Hash, 0
			}
		}
		return nil, SHA1Hash{}, 0
	}

	var reparse, unnamed *Stream
	var named []Stream
	for i := range inode.Streams {
		s := &inode.Streams[i]
		switch {
		case s.Type == StreamReparsePoint:
			reparse = s
		case s.Name != "":
			named = append(named, *s)
		case s.Type == StreamData:
			unnamed = s
		}
	}

	if reparse == nil && len(named) == 0 {
		if unnamed != nil {
			return nil, unnamed.Hash, 0
		}
		return nil, SHA1Hash{}, 0
	}

	if reparse != nil {
		extra = append(extra, *reparse)
	}
	if unnamed != nil {
		extra = append(extra, *unnamed)
	} else {
		extra = append(extra, Stream{Type: StreamData})
	}
	extra = append(extra, named...)
	return extra, SHA1Hash{}, len(extra)
}

func encodeStreamEntry(s Stream) []byte {
	var hdr rawStreamHeader
	hdr.Hash = s.Hash
	nameBytes := encodeUTF16LE(s.Name)
	hdr.NameLength = uint16(len(nameBytes))

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, &hdr)
	if len(nameBytes) > 0 {
		buf.Write(nameBytes)
		buf.Write([]byte{0, 0})
	}
	for int64(buf.Len())&7 != 0 {
		buf.WriteByte(0)
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(out)))
	return out
}
