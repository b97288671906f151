package wim

import "io"

// BlobProvider resolves a stream's content hash to its bytes. The dentry
// codec never reads blob content itself; callers that need it (checksum
// verification, extraction, the Windows metadata harvester) go through
// this interface so the codec stays independent of how blobs are stored,
// compressed, or located on disk.
type BlobProvider interface {
	OpenBlob(hash SHA1Hash) (io.ReadCloser, error)
}

// MetadataResourceProvider supplies the decompressed metadata resource
// buffer and the byte offset of its root dentry, so ParseTree can be
// driven without this package knowing about resource headers, compression,
// or spanning — those concerns live in the container layer, outside this
// component's scope.
type MetadataResourceProvider interface {
	ReadMetadataResource() (buf []byte, rootOffset int64, err error)
}

// XMLPropertySetter receives the dotted property paths the Windows
// metadata harvester (§4.E) discovers, such as "WINDOWS/SYSTEMROOT" or
// "WINDOWS/LANGUAGES/LANGUAGE[1]". It abstracts over however the caller
// represents the WIM XML info document. Per §6, a property write only
// ever fails one way: out of memory. SetProperty must return
// ErrOutOfMemory (or a wrapped instance of it) in that case and nil
// otherwise; callers propagate a non-nil return as fatal.
type XMLPropertySetter interface {
	SetProperty(path, value string) error
}

// RegistryHive is a parsed offline registry hive, giving the harvester
// just enough surface to read the handful of keys it needs. StringValue
// returns ErrNotFound when the key or value does not exist, ErrOutOfMemory
// if reading it exhausted memory, or another error for a value present
// but unusable (e.g. not string-typed); only ErrOutOfMemory is fatal to
// the caller, matching the OK/NOT_FOUND/OUT_OF_MEMORY/INVALID status set
// §6 documents for get_string/get_number.
type RegistryHive interface {
	StringValue(keyPath, valueName string) (string, error)
	Subkeys(keyPath string) ([]string, error)
}

// RegistryHiveParser turns raw hive bytes (from a SOFTWARE or SYSTEM blob)
// into a RegistryHive, or reports the blob is not a valid hive.
type RegistryHiveParser interface {
	ParseHive(data []byte) (RegistryHive, error)
}
