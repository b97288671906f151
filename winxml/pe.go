// Package winxml implements the Windows-image metadata harvester (§4.E):
// locating the system root inside a decoded dentry tree, reading kernel32's
// PE header to determine the image's processor architecture, and mapping a
// handful of offline registry values onto WIM XML info properties.
package winxml

import (
	"encoding/binary"
	"errors"
)

// ErrNotAPEImage is returned when a kernel32.dll blob's bytes do not look
// like a valid PE image, mirroring the bounds and signature checks
// set_info_from_kernel32 performs before trusting the machine word. peArch
// also returns it for a machine word that peMachineToArch does not list.
var ErrNotAPEImage = errors.New("winxml: not a PE image")

// peMachineToArch maps the PE COFF header's Machine field to the
// PROCESSOR_ARCHITECTURE_* code the WIM XML info document expects in
// WINDOWS/ARCH.
var peMachineToArch = map[uint16]int{
	0x014c: 0,  // IMAGE_FILE_MACHINE_I386  -> PROCESSOR_ARCHITECTURE_INTEL
	0x01c0: 5,  // IMAGE_FILE_MACHINE_ARM   -> PROCESSOR_ARCHITECTURE_ARM
	0x01c4: 5,  // IMAGE_FILE_MACHINE_ARMNT (ARMv7)
	0x01c2: 5,  // IMAGE_FILE_MACHINE_THUMB
	0x0200: 6,  // IMAGE_FILE_MACHINE_IA64  -> PROCESSOR_ARCHITECTURE_IA64
	0x8664: 9,  // IMAGE_FILE_MACHINE_AMD64 -> PROCESSOR_ARCHITECTURE_AMD64
	0xaa64: 12, // IMAGE_FILE_MACHINE_ARM64 -> PROCESSOR_ARCHITECTURE_ARM64
}

// peArch reads the COFF Machine word out of a PE image's bytes and returns
// the Windows processor-architecture code it corresponds to. It performs
// the same bounds and signature validation as the original harvester:
// enough bytes for the DOS header, an in-bounds and 4-byte-aligned
// e_lfanew, and a "PE\0\0" signature at the resulting offset.
func peArch(contents []byte) (int, error) {
	if len(contents) < 0x40 {
		return 0, ErrNotAPEImage
	}
	lfanew := binary.LittleEndian.Uint32(contents[0x3c:])
	if lfanew%4 != 0 {
		return 0, ErrNotAPEImage
	}
	peHdr := int64(lfanew)
	if peHdr < 0 || peHdr > int64(len(contents))-8 {
		return 0, ErrNotAPEImage
	}
	sig := contents[peHdr : peHdr+4]
	if sig[0] != 'P' || sig[1] != 'E' || sig[2] != 0 || sig[3] != 0 {
		return 0, ErrNotAPEImage
	}
	machine := binary.LittleEndian.Uint16(contents[peHdr+4:])
	arch, ok := peMachineToArch[machine]
	if !ok {
		return 0, ErrNotAPEImage
	}
	return arch, nil
}
