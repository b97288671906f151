package wim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFile(name string, attrs uint32, hash SHA1Hash) *Dentry {
	return &Dentry{
		Name: name,
		Inode: &Inode{
			Attributes: attrs,
			SecurityID: -1,
			Streams:    []Stream{{Hash: hash, Type: StreamData}},
		},
	}
}

func TestEncodeDecodeDentryRecordRoundTrip(t *testing.T) {
	hash := SHA1Hash{1, 2, 3}
	d := makeFile("hello.txt", AttrArchive, hash)

	buf, err := encodeDentryRecord(d, 0)
	require.NoError(t, err)
	require.True(t, len(buf) >= dentryHeaderSize)
	require.Zero(t, len(buf)%8)

	rec, err := parseDentryRecord(buf, 0)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "hello.txt", rec.name)
	assert.Equal(t, hash, rec.inode.DefaultHash())
	assert.Equal(t, StreamData, rec.inode.Streams[0].Type)
	assert.EqualValues(t, len(buf), rec.consumed)
}

func TestEncodeDentryRecordRejectsUnpairableSurrogate(t *testing.T) {
	// "\xed\xa0\x80" is the WTF-8 encoding of the lone high surrogate
	// U+D800: not valid UTF-8, so it cannot appear in a Go string built
	// from runes, but it can appear as raw bytes read off a file system
	// that permits it. Re-encoding it to UTF-16 and back does not
	// reproduce these bytes.
	name := "bad\xed\xa0\x80name"
	d := makeFile(name, AttrArchive, SHA1Hash{1})

	_, err := encodeDentryRecord(d, 0)
	assert.ErrorIs(t, err, ErrEncodingFailure)
}

func TestParseDentryRecordEndOfSiblings(t *testing.T) {
	buf := make([]byte, 8)
	rec, err := parseDentryRecord(buf, 0)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestParseDentryRecordRejectsOddNameLength(t *testing.T) {
	d := makeFile("x", AttrArchive, SHA1Hash{})
	buf, err := encodeDentryRecord(d, 0)
	require.NoError(t, err)

	// FileNameLength lives at fixed offset 100; corrupt it to be odd.
	buf[100] = 3

	_, err = parseDentryRecord(buf, 0)
	require.Error(t, err)
}

func TestParseDentryRecordRejectsShortHeader(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = dentryHeaderSize - 8 // length field smaller than fixed header
	_, err := parseDentryRecord(buf, 0)
	require.Error(t, err)
}

func TestAssignStreamTypesUnencryptedPicksReparseAndData(t *testing.T) {
	inode := &Inode{
		Attributes: AttrReparsePoint,
		Streams: []Stream{
			{Hash: SHA1Hash{1}},
			{Hash: SHA1Hash{2}},
			{Name: "ads", Hash: SHA1Hash{3}},
		},
	}
	assignStreamTypes(inode)
	assert.Equal(t, StreamReparsePoint, inode.Streams[0].Type)
	assert.Equal(t, StreamData, inode.Streams[1].Type)
	assert.Equal(t, StreamData, inode.Streams[2].Type)
}

func TestAssignStreamTypesEncryptedPicksEFSStream(t *testing.T) {
	inode := &Inode{
		Attributes: AttrEncrypted,
		Streams: []Stream{
			{Hash: SHA1Hash{}},
			{Hash: SHA1Hash{9}},
		},
	}
	assignStreamTypes(inode)
	assert.Equal(t, StreamEFSRPCRawData, inode.Streams[1].Type)
	assert.Equal(t, StreamUntyped, inode.Streams[0].Type)
}

func TestAssignStreamTypesFallsBackToZeroHashUnnamed(t *testing.T) {
	inode := &Inode{
		Streams: []Stream{
			{Hash: SHA1Hash{}},
		},
	}
	assignStreamTypes(inode)
	assert.Equal(t, StreamData, inode.Streams[0].Type)
}
