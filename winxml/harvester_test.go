package winxml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Microsoft/go-wimlib/wim"
)

type fakeBlobProvider map[wim.SHA1Hash][]byte

func (f fakeBlobProvider) OpenBlob(hash wim.SHA1Hash) (io.ReadCloser, error) {
	b, ok := f[hash]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fakeXML map[string]string

func (f fakeXML) SetProperty(path, value string) error {
	f[path] = value
	return nil
}

// oomXML fails the first SetProperty call whose path matches failPath,
// simulating an out-of-memory property write.
type oomXML struct {
	fakeXML
	failPath string
}

func (o oomXML) SetProperty(path, value string) error {
	if path == o.failPath {
		return wim.ErrOutOfMemory
	}
	return o.fakeXML.SetProperty(path, value)
}

type failingHiveParser struct{}

func (failingHiveParser) ParseHive(data []byte) (wim.RegistryHive, error) {
	return nil, errors.New("not a valid hive")
}

func makeKernel32PE(machine uint16) []byte {
	buf := make([]byte, 0x40+8)
	binary.LittleEndian.PutUint32(buf[0x3c:], 0x40)
	copy(buf[0x40:], []byte{'P', 'E', 0, 0})
	binary.LittleEndian.PutUint16(buf[0x44:], machine)
	return buf
}

func fileDentry(name string, hash wim.SHA1Hash) *wim.Dentry {
	return &wim.Dentry{
		Name: name,
		Inode: &wim.Inode{
			Attributes: wim.AttrArchive,
			SecurityID: -1,
			Streams:    []wim.Stream{{Hash: hash, Type: wim.StreamData}},
		},
	}
}

func buildS6Tree(kernel32Hash wim.SHA1Hash) *wim.Dentry {
	root := wim.NewDirectory("")
	windows := wim.NewDirectory("WINDOWS")
	system32 := wim.NewDirectory("System32")

	_ = wim.InsertChild(system32, fileDentry("kernel32.dll", kernel32Hash))
	_ = wim.InsertChild(windows, system32)
	_ = wim.InsertChild(root, windows)
	return root
}

func TestHarvestFindsArchAndWarnsOnMissingHives(t *testing.T) {
	hash := wim.SHA1Hash{0x11}
	root := buildS6Tree(hash)
	blobs := fakeBlobProvider{hash: makeKernel32PE(0x8664)}
	xml := fakeXML{}

	err := Harvest(root, blobs, failingHiveParser{}, xml, wim.NewOptions())
	require.NoError(t, err)

	assert.Equal(t, "WINDOWS", xml["WINDOWS/SYSTEMROOT"])
	assert.Equal(t, "9", xml["WINDOWS/ARCH"])
	_, hasEdition := xml["WINDOWS/EDITIONID"]
	assert.False(t, hasEdition)
}

func TestHarvestNoSystemRootIsNotAnError(t *testing.T) {
	root := wim.NewDirectory("")
	_ = wim.InsertChild(root, fileDentry("readme.txt", wim.SHA1Hash{0x22}))
	xml := fakeXML{}

	err := Harvest(root, fakeBlobProvider{}, failingHiveParser{}, xml, wim.NewOptions())
	require.NoError(t, err)
	assert.Empty(t, xml)
}

func TestHarvestPropagatesSetPropertyOutOfMemory(t *testing.T) {
	hash := wim.SHA1Hash{0x11}
	root := buildS6Tree(hash)
	blobs := fakeBlobProvider{hash: makeKernel32PE(0x8664)}
	xml := oomXML{fakeXML: fakeXML{}, failPath: "WINDOWS/SYSTEMROOT"}

	err := Harvest(root, blobs, failingHiveParser{}, xml, wim.NewOptions())
	assert.ErrorIs(t, err, wim.ErrOutOfMemory)
}

func TestPeArchRejectsTruncatedImage(t *testing.T) {
	_, err := peArch([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotAPEImage)
}

func TestPeArchRecognizesAMD64(t *testing.T) {
	arch, err := peArch(makeKernel32PE(0x8664))
	require.NoError(t, err)
	assert.Equal(t, 9, arch)
}

func TestLanguageNameLooksUpKnownID(t *testing.T) {
	name, ok := languageName(0x0409)
	require.True(t, ok)
	assert.Equal(t, "en-US", name)

	_, ok = languageName(0xffff)
	assert.False(t, ok)
}
