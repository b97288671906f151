package wim

import (
	"strings"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

// Dentry is one directory entry in an in-memory WIM image tree: a name
// bound to an Inode, linked to its parent and (if the inode is a
// directory) an ordered set of children.
type Dentry struct {
	Name      string
	ShortName string
	Inode     *Inode
	Parent    *Dentry

	children *dirIndex
	ciNext   *Dentry // next sibling sharing this dentry's case-insensitive key
}

// dirIndex holds the two balanced ordered indexes a directory maintains
// over its children per §4.D: one case-sensitive, one case-insensitive.
// Every child is always present in the case-sensitive index; a child only
// occupies the case-insensitive index if it is the first with that folded
// key, with later arrivals chained through ciNext off the representative.
type dirIndex struct {
	cs *btree.BTreeG[*Dentry]
	ci *btree.BTreeG[*Dentry]
}

const btreeDegree = 32

func newDirIndex() *dirIndex {
	return &dirIndex{
		cs: btree.NewG(btreeDegree, func(a, b *Dentry) bool { return a.Name < b.Name }),
		ci: btree.NewG(btreeDegree, func(a, b *Dentry) bool { return foldName(a.Name) < foldName(b.Name) }),
	}
}

// IsDirectory reports whether d can have children.
func (d *Dentry) IsDirectory() bool {
	return d.Inode != nil && d.Inode.IsDirectory()
}

// NewDirectory creates an unattached directory Dentry with empty
// attributes beyond the directory bit, ready to be inserted as a child or
// used as a tree root.
func NewDirectory(name string) *Dentry {
	return &Dentry{
		Name:     name,
		Inode:    &Inode{Attributes: AttrDirectory, SecurityID: -1},
		children: newDirIndex(),
	}
}

// ErrDuplicateName is returned by InsertChild when dir already has a
// case-sensitively identical child name.
var ErrDuplicateName = errors.New("wim: duplicate child name")

// InsertChild adds child under dir per §4.D's insertion contract: a
// case-sensitive collision is a hard failure, while a case-insensitive
// collision merely joins the new child to the existing collision list.
// dir must be a directory.
func InsertChild(dir, child *Dentry) error {
	if !dir.IsDirectory() {
		return errors.Wrap(ErrNotADirectory, "InsertChild")
	}
	if dir.children == nil {
		dir.children = newDirIndex()
	}
	idx := dir.children

	if _, exists := idx.cs.Get(child); exists {
		return ErrDuplicateName
	}
	idx.cs.ReplaceOrInsert(child)
	child.Parent = dir

	if rep, exists := idx.ci.Get(child); exists {
		child.ciNext = rep.ciNext
		rep.ciNext = child
	} else {
		idx.ci.ReplaceOrInsert(child)
	}
	return nil
}

// RemoveChild detaches child from dir, promoting the next collision-list
// member into the case-insensitive index if child was its representative.
func RemoveChild(dir, child *Dentry) {
	if dir.children == nil {
		return
	}
	idx := dir.children
	idx.cs.Delete(child)

	if rep, exists := idx.ci.Get(child); exists && rep == child {
		idx.ci.Delete(child)
		if child.ciNext != nil {
			idx.ci.ReplaceOrInsert(child.ciNext)
		}
	} else if exists {
		for cur := rep; cur != nil; cur = cur.ciNext {
			if cur.ciNext == child {
				cur.ciNext = child.ciNext
				break
			}
		}
	}
	child.ciNext = nil
	child.Parent = nil
}

// lookupCaseSensitive returns the child named exactly name, if any.
func lookupCaseSensitive(dir *Dentry, name string) (*Dentry, bool) {
	if dir.children == nil {
		return nil, false
	}
	return dir.children.cs.Get(&Dentry{Name: name})
}

// lookupCaseInsensitive implements §4.D's case-insensitive lookup: prefer
// an exact-case match within the collision list, otherwise fall back to
// the representative and report the choice as ambiguous.
func lookupCaseInsensitive(dir *Dentry, name string) (result *Dentry, ambiguous, ok bool) {
	if dir.children == nil {
		return nil, false, false
	}
	rep, found := dir.children.ci.Get(&Dentry{Name: name})
	if !found {
		return nil, false, false
	}
	for cur := rep; cur != nil; cur = cur.ciNext {
		if cur.Name == name {
			return cur, false, true
		}
	}
	return rep, rep.ciNext != nil, true
}

func lookupChild(dir *Dentry, name string, sensitivity CaseSensitivity, opts *Options) (*Dentry, bool) {
	if sensitivity == PlatformDefault && opts != nil {
		sensitivity = opts.caseSensitivity
	}
	if sensitivity.resolve() == CaseSensitive {
		return lookupCaseSensitive(dir, name)
	}
	child, ambiguous, ok := lookupCaseInsensitive(dir, name)
	if ambiguous {
		warnf(opts, "ambiguous case-insensitive lookup for %q under %q", name, dir.Name)
	}
	return child, ok
}

// AscendChildren calls fn for each child of dir in case-sensitive order,
// stopping early if fn returns false.
func AscendChildren(dir *Dentry, fn func(*Dentry) bool) {
	if dir.children == nil {
		return
	}
	dir.children.cs.Ascend(func(child *Dentry) bool { return fn(child) })
}

// Walk visits dir and its descendants in pre-order (parent before
// children, siblings in case-sensitive order), matching the emission and
// property-setting traversal in §4.D. It stops and returns the first
// error fn produces.
func Walk(dir *Dentry, fn func(*Dentry) error) error {
	if err := fn(dir); err != nil {
		return err
	}
	var err error
	AscendChildren(dir, func(child *Dentry) bool {
		if err = Walk(child, fn); err != nil {
			return false
		}
		return true
	})
	return err
}

// WalkPostOrder visits dir's descendants before dir itself, for freeing
// or other bottom-up processing.
func WalkPostOrder(dir *Dentry, fn func(*Dentry) error) error {
	var err error
	AscendChildren(dir, func(child *Dentry) bool {
		if err = WalkPostOrder(child, fn); err != nil {
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return fn(dir)
}

// Lookup resolves a slash-or-backslash-separated path against root per
// §4.D's path resolution contract.
func Lookup(root *Dentry, path string, sensitivity CaseSensitivity, opts *Options) (*Dentry, error) {
	trimmed := strings.TrimLeft(path, `/\`)
	if trimmed == "" {
		return root, nil
	}
	trailingSep := strings.HasSuffix(trimmed, "/") || strings.HasSuffix(trimmed, `\`)

	components := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '\\' })

	cur := root
	for _, comp := range components {
		if !cur.IsDirectory() {
			return nil, errors.Wrapf(ErrNotADirectory, "resolving %q", path)
		}
		child, ok := lookupChild(cur, comp, sensitivity, opts)
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "resolving %q", path)
		}
		cur = child
	}
	if trailingSep && !cur.IsDirectory() {
		return nil, errors.Wrapf(ErrNotADirectory, "resolving %q", path)
	}
	return cur, nil
}

// ParseTree decodes a full dentry tree from a decompressed metadata
// resource buffer, starting at rootOffset, per §4.C.2. An empty buf (or a
// root record whose length is the end-of-siblings marker) yields an empty,
// unnamed root directory.
func ParseTree(buf []byte, rootOffset int64, opts *Options) (*Dentry, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if len(buf) == 0 {
		return NewDirectory(""), nil
	}

	rec, err := parseDentryRecord(buf, rootOffset)
	if err != nil {
		return nil, parseErrorf("root dentry", err)
	}
	if rec == nil {
		return NewDirectory(""), nil
	}
	if !rec.inode.IsDirectory() {
		return nil, parseErrorf("root dentry", errors.Wrap(ErrInvalidMetadataResource, "root is not a directory"))
	}

	root := &Dentry{Inode: rec.inode, children: newDirIndex()}
	if rec.name != "" {
		warnf(opts, "root dentry has a name %q; stripping", rec.name)
	}

	if rec.subdirOffset != 0 {
		if err := decodeChildren(buf, rec.subdirOffset, root, opts); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// decodeChildren reads dir's sibling-terminated child list starting at
// offset, inserting accepted children and recursing into any that are
// themselves directories.
func decodeChildren(buf []byte, offset int64, dir *Dentry, opts *Options) error {
	for anc := dir.Parent; anc != nil; anc = anc.Parent {
		if anc.Inode.SubdirOffset == offset {
			return parseErrorf("directory tree", errors.Wrap(ErrInvalidMetadataResource, "cyclic directory structure detected"))
		}
	}

	cur := offset
	for {
		rec, err := parseDentryRecord(buf, cur)
		if err != nil {
			return parseErrorf("dentry", err)
		}
		if rec == nil {
			return nil
		}
		cur += rec.consumed

		if rec.name == "" {
			warnf(opts, "unnamed non-root dentry under %q; skipping", dir.Name)
			continue
		}
		if rec.name == "." || rec.name == ".." {
			warnf(opts, "dentry named %q under %q; skipping", rec.name, dir.Name)
			continue
		}

		child := &Dentry{Name: rec.name, ShortName: rec.shortName, Inode: rec.inode}
		if child.IsDirectory() {
			child.children = newDirIndex()
		}

		if err := InsertChild(dir, child); err != nil {
			warnf(opts, "case-sensitive collision on %q under %q; keeping first", rec.name, dir.Name)
			continue
		}

		if child.IsDirectory() {
			if rec.subdirOffset != 0 {
				if err := decodeChildren(buf, rec.subdirOffset, child, opts); err != nil {
					return err
				}
			}
		} else if rec.subdirOffset != 0 {
			warnf(opts, "non-directory dentry %q claims children; ignoring", rec.name)
		}
	}
}

// EncodeTree serializes root and its descendants into a metadata resource
// buffer per §4.C.4, assigning fresh subdir offsets as it goes. The
// caller is responsible for recording the returned root offset (always 0,
// the start of the buffer) in the enclosing resource header.
func EncodeTree(root *Dentry) ([]byte, error) {
	rootPlaceholder, err := encodeDentryRecord(root, 0)
	if err != nil {
		return nil, err
	}
	counter := int64(len(rootPlaceholder)) + 8
	if err := assignSubdirOffsets(root, &counter); err != nil {
		return nil, err
	}

	rootBytes, err := encodeDentryRecord(root, root.Inode.SubdirOffset)
	if err != nil {
		return nil, err
	}
	out := append(rootBytes, make([]byte, 8)...)

	if err := writeChildrenBlocks(root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// assignSubdirOffsets is calculate_subdir_offsets: a pre-order walk that,
// for each directory, records where its children will begin and advances
// counter past their encoded size plus an 8-byte terminator.
func assignSubdirOffsets(d *Dentry, counter *int64) error {
	if d.IsDirectory() {
		d.Inode.SubdirOffset = *counter
		var err error
		AscendChildren(d, func(child *Dentry) bool {
			var b []byte
			b, err = encodeDentryRecord(child, 0)
			if err != nil {
				return false
			}
			*counter += int64(len(b))
			return true
		})
		if err != nil {
			return err
		}
		*counter += 8
	} else {
		d.Inode.SubdirOffset = 0
	}

	var err error
	AscendChildren(d, func(child *Dentry) bool {
		if err = assignSubdirOffsets(child, counter); err != nil {
			return false
		}
		return true
	})
	return err
}

// writeChildrenBlocks mirrors write_dir_dentries: for each directory
// visited in pre-order, emit its children's records back to back followed
// by an 8-byte terminator.
func writeChildrenBlocks(d *Dentry, out *[]byte) error {
	if d.IsDirectory() {
		var err error
		AscendChildren(d, func(child *Dentry) bool {
			var b []byte
			b, err = encodeDentryRecord(child, child.Inode.SubdirOffset)
			if err != nil {
				return false
			}
			*out = append(*out, b...)
			return true
		})
		if err != nil {
			return err
		}
		*out = append(*out, make([]byte, 8)...)
	}

	var err error
	AscendChildren(d, func(child *Dentry) bool {
		if err = writeChildrenBlocks(child, out); err != nil {
			return false
		}
		return true
	})
	return err
}
