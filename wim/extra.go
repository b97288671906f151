package wim

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrInvalidExtraBlob is wrapped into ErrInvalidMetadataResource when a
// dentry's extra tagged-item blob is truncated or self-inconsistent.
var ErrInvalidExtraBlob = errors.New("wim: invalid extra tagged-item blob")

// Tag is one entry of a dentry's extra metadata blob: an opaque numeric
// tag identifying the kind of data (for example, an object-id tag) paired
// with its raw value. The dentry codec does not interpret tag contents; it
// only preserves the chain of tags across a parse/emit round trip.
type Tag struct {
	ID    uint32
	Value []byte
}

// tagEntryHeader mirrors the chained-entry shape of a Windows
// FILE_FULL_EA_INFORMATION record (next-offset, then a fixed header, then
// a value), generalized from a null-terminated name to a numeric tag id
// since the on-disk tagged-item format itself is unspecified beyond "byte
// blob of tagged metadata".
type tagEntryHeader struct {
	NextEntryOffset uint32
	Reserved        uint32
	Tag             uint32
	ValueLength     uint32
}

const tagEntryHeaderSize = 16

func parseTag(b []byte) (tag Tag, rest []byte, err error) {
	if len(b) < tagEntryHeaderSize {
		return Tag{}, nil, errors.Wrap(ErrInvalidExtraBlob, "truncated tag header")
	}
	var hdr tagEntryHeader
	if err := binary.Read(bytes.NewReader(b[:tagEntryHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return Tag{}, nil, errors.Wrap(ErrInvalidExtraBlob, "tag header")
	}

	valueEnd := tagEntryHeaderSize + int(hdr.ValueLength)
	if valueEnd > len(b) {
		return Tag{}, nil, errors.Wrap(ErrInvalidExtraBlob, "tag value overruns blob")
	}
	tag = Tag{ID: hdr.Tag, Value: append([]byte(nil), b[tagEntryHeaderSize:valueEnd]...)}

	if hdr.NextEntryOffset == 0 {
		return tag, nil, nil
	}
	if int(hdr.NextEntryOffset) > len(b) {
		return Tag{}, nil, errors.Wrap(ErrInvalidExtraBlob, "next tag entry overruns blob")
	}
	return tag, b[hdr.NextEntryOffset:], nil
}

// DecodeTags decodes a chained sequence of Tags from a dentry's extra
// blob. An empty blob decodes to no tags.
func DecodeTags(b []byte) ([]Tag, error) {
	var tags []Tag
	for len(b) != 0 {
		tag, rest, err := parseTag(b)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
		b = rest
	}
	return tags, nil
}

// EncodeTags encodes a sequence of Tags into a dentry's extra blob, each
// entry individually padded to a 4-byte boundary and chained via
// NextEntryOffset. The blob as a whole is 8-byte aligned by the dentry
// emitter, not by EncodeTags itself.
func EncodeTags(tags []Tag) ([]byte, error) {
	var buf bytes.Buffer
	for i, tag := range tags {
		if int(uint32(len(tag.Value))) != len(tag.Value) {
			return nil, errors.Wrap(ErrEncodingFailure, "tag value too large")
		}
		entrySize := uint32(tagEntryHeaderSize + len(tag.Value))
		withPadding := (entrySize + 3) &^ 3
		nextOffset := uint32(0)
		if i != len(tags)-1 {
			nextOffset = withPadding
		}
		hdr := tagEntryHeader{
			NextEntryOffset: nextOffset,
			Tag:             tag.ID,
			ValueLength:     uint32(len(tag.Value)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
			return nil, err
		}
		buf.Write(tag.Value)
		buf.Write(make([]byte, withPadding-entrySize))
	}
	return buf.Bytes(), nil
}
