package wim

import "time"

// filetimeEpochOffset is the number of 100-nanosecond ticks between the
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochOffset = 116444736000000000

// FileTime is a Windows FILETIME value: the number of 100-nanosecond ticks
// since 1601-01-01 UTC, stored on disk as two little-endian 32-bit halves.
// It replaces syscall.Filetime so that the dentry codec has no platform
// dependency; the shape (low/high 32 bits) is kept because it is what
// appears on the wire.
type FileTime struct {
	LowDateTime  uint32
	HighDateTime uint32
}

// Ticks returns the FILETIME value as a single 64-bit tick count.
func (t FileTime) Ticks() uint64 {
	return uint64(t.HighDateTime)<<32 | uint64(t.LowDateTime)
}

// FileTimeFromTicks builds a FileTime from a 64-bit tick count.
func FileTimeFromTicks(ticks uint64) FileTime {
	return FileTime{LowDateTime: uint32(ticks), HighDateTime: uint32(ticks >> 32)}
}

// Time converts to a time.Time in UTC.
func (t FileTime) Time() time.Time {
	ticks := t.Ticks()
	if ticks < filetimeEpochOffset {
		return time.Unix(0, 0).UTC()
	}
	unixTicks := ticks - filetimeEpochOffset
	return time.Unix(0, int64(unixTicks)*100).UTC()
}

// FileTimeFromTime converts a time.Time to a FileTime.
func FileTimeFromTime(t time.Time) FileTime {
	ticks := uint64(t.UnixNano()/100) + filetimeEpochOffset
	return FileTimeFromTicks(ticks)
}

// IsZero reports whether t is the on-disk zero value.
func (t FileTime) IsZero() bool {
	return t.LowDateTime == 0 && t.HighDateTime == 0
}
