package wim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertChildCaseSensitiveDuplicateFails(t *testing.T) {
	root := NewDirectory("")
	a := makeFile("a.txt", AttrArchive, SHA1Hash{1})
	b := makeFile("a.txt", AttrArchive, SHA1Hash{2})

	require.NoError(t, InsertChild(root, a))
	err := InsertChild(root, b)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestInsertChildCaseInsensitiveCollisionJoinsList(t *testing.T) {
	root := NewDirectory("")
	upper := makeFile("A.txt", AttrArchive, SHA1Hash{1})
	lower := makeFile("a.txt", AttrArchive, SHA1Hash{2})

	require.NoError(t, InsertChild(root, upper))
	require.NoError(t, InsertChild(root, lower))

	rep, found := root.children.ci.Get(&Dentry{Name: "A.txt"})
	require.True(t, found)
	assert.Same(t, upper, rep)
	assert.Same(t, lower, rep.ciNext)

	child, ambiguous, ok := lookupCaseInsensitive(root, "a.txt")
	assert.True(t, ok)
	assert.False(t, ambiguous)
	assert.Same(t, lower, child)

	child, ambiguous, ok = lookupCaseInsensitive(root, "A.TXT")
	assert.True(t, ok)
	assert.True(t, ambiguous)
	assert.Same(t, upper, child)
}

func TestRemoveChildPromotesNextCollisionMember(t *testing.T) {
	root := NewDirectory("")
	upper := makeFile("A.txt", AttrArchive, SHA1Hash{1})
	lower := makeFile("a.txt", AttrArchive, SHA1Hash{2})
	require.NoError(t, InsertChild(root, upper))
	require.NoError(t, InsertChild(root, lower))

	RemoveChild(root, upper)

	rep, found := root.children.ci.Get(&Dentry{Name: "a.txt"})
	require.True(t, found)
	assert.Same(t, lower, rep)
	assert.Nil(t, lower.ciNext)

	_, ok := lookupCaseSensitive(root, "A.txt")
	assert.False(t, ok)
}

func buildS5Tree() *Dentry {
	root := NewDirectory("")

	upper := makeFile("A.txt", AttrArchive, SHA1Hash{0xaa})
	lower := makeFile("a.txt", AttrArchive, SHA1Hash{0xbb})

	sub := NewDirectory("sub")
	withADS := &Dentry{
		Name: "doc.txt",
		Inode: &Inode{
			Attributes: AttrArchive,
			SecurityID: -1,
			Streams: []Stream{
				{Hash: SHA1Hash{0xcc}, Type: StreamData},
				{Name: "ads", Hash: SHA1Hash{0xdd}, Type: StreamData},
			},
		},
	}

	_ = InsertChild(root, upper)
	_ = InsertChild(root, lower)
	_ = InsertChild(root, sub)
	_ = InsertChild(sub, withADS)

	return root
}

func TestDentryTreeRoundTripS5(t *testing.T) {
	root := buildS5Tree()

	buf, err := EncodeTree(root)
	require.NoError(t, err)

	parsed, err := ParseTree(buf, 0, NewOptions())
	require.NoError(t, err)

	require.Equal(t, "", parsed.Name)
	assert.True(t, parsed.IsDirectory())

	a, ok := lookupCaseSensitive(parsed, "A.txt")
	require.True(t, ok)
	assert.Equal(t, SHA1Hash{0xaa}, a.Inode.DefaultHash())

	rep, found := parsed.children.ci.Get(&Dentry{Name: "a.txt"})
	require.True(t, found)
	collisionLen := 0
	for cur := rep.ciNext; cur != nil; cur = cur.ciNext {
		collisionLen++
	}
	assert.Equal(t, 1, collisionLen)

	sub, ok := lookupCaseSensitive(parsed, "sub")
	require.True(t, ok)
	require.True(t, sub.IsDirectory())

	doc, ok := lookupCaseSensitive(sub, "doc.txt")
	require.True(t, ok)
	// slot 0 (the record's now-zeroed default_hash) plus the two extra
	// stream entries (unnamed data, named "ads").
	require.Len(t, doc.Inode.Streams, 3)

	var namedFound bool
	for _, s := range doc.Inode.Streams {
		if s.Name == "ads" {
			namedFound = true
			assert.Equal(t, StreamData, s.Type)
			assert.Equal(t, SHA1Hash{0xdd}, s.Hash)
		}
	}
	assert.True(t, namedFound)
}

func TestLookupAgreesWithTraversal(t *testing.T) {
	root := buildS5Tree()
	opts := NewOptions()

	err := Walk(root, func(d *Dentry) error {
		if d == root {
			return nil
		}
		var path string
		for cur := d; cur != root; cur = cur.Parent {
			path = "/" + cur.Name + path
		}
		found, err := Lookup(root, path, CaseSensitive, opts)
		require.NoError(t, err)
		assert.Same(t, d, found)
		return nil
	})
	require.NoError(t, err)
}

func TestLookupNotADirectory(t *testing.T) {
	root := buildS5Tree()
	_, err := Lookup(root, "/A.txt/nope", CaseSensitive, NewOptions())
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestLookupNotFound(t *testing.T) {
	root := buildS5Tree()
	_, err := Lookup(root, "/missing", CaseSensitive, NewOptions())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseTreeRejectsCycle(t *testing.T) {
	// A cycle is detected when a directory's declared children offset
	// coincides with an ancestor's, which the parser rejects before it
	// would otherwise recurse forever.
	root := NewDirectory("")
	mid := &Dentry{Name: "mid", Inode: &Inode{Attributes: AttrDirectory, SecurityID: -1, SubdirOffset: 100}, children: newDirIndex()}
	require.NoError(t, InsertChild(root, mid))
	child := &Dentry{Name: "child", Inode: &Inode{Attributes: AttrDirectory, SecurityID: -1}, children: newDirIndex()}
	require.NoError(t, InsertChild(mid, child))

	err := decodeChildren(nil, 100, child, NewOptions())
	assert.Error(t, err)
}

func TestParseTreeRejectsCycleTargetingRoot(t *testing.T) {
	// A descendant whose declared children offset coincides with the
	// root's own offset is a cycle too, not just a mid-tree one.
	root := NewDirectory("")
	root.Inode.SubdirOffset = 100
	child := &Dentry{Name: "child", Inode: &Inode{Attributes: AttrDirectory, SecurityID: -1}, children: newDirIndex()}
	require.NoError(t, InsertChild(root, child))

	err := decodeChildren(nil, 100, child, NewOptions())
	assert.Error(t, err)
}

func TestParseTreeEmptyRoot(t *testing.T) {
	root, err := ParseTree(nil, 0, nil)
	require.NoError(t, err)
	assert.True(t, root.IsDirectory())
	assert.Equal(t, "", root.Name)
}
