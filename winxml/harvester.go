package winxml

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/Microsoft/go-wimlib/wim"
)

// Harvest implements the Windows metadata harvester (§4.E): it looks for a
// Windows system root among root's top-level directories, and for whatever
// it finds there, populates xml with WINDOWS/* properties derived from
// kernel32.dll's PE header and the SOFTWARE/SYSTEM registry hives.
//
// Every failure short of running out of memory is logged through opts and
// otherwise ignored, mirroring set_windows_specific_info: a missing or
// unparsable hive, or a kernel32.dll that isn't a valid PE image, means
// less metadata gets recorded, not that the whole image is unusable.
func Harvest(root *wim.Dentry, blobs wim.BlobProvider, hives wim.RegistryHiveParser, xml wim.XMLPropertySetter, opts *wim.Options) error {
	cand := findSystemRoot(root, opts)
	if cand == nil {
		return nil
	}

	if err := xml.SetProperty("WINDOWS/SYSTEMROOT", strings.ToUpper(cand.dir.Name)); err != nil {
		return err
	}

	if cand.kernel32 != nil {
		if err := harvestArch(cand.kernel32, blobs, xml, opts); err != nil {
			if errors.Is(err, wim.ErrOutOfMemory) {
				return err
			}
			warnHarvest(opts, "reading kernel32.dll: %v", err)
		}
	}

	if cand.software != nil {
		if err := harvestHive(cand.software, blobs, hives, opts, func(h wim.RegistryHive) error {
			return applySoftwareHive(h, xml, opts)
		}); err != nil {
			if errors.Is(err, wim.ErrOutOfMemory) {
				return err
			}
			warnHarvest(opts, "reading SOFTWARE hive: %v", err)
		}
	} else {
		warnHarvest(opts, "no System32/config/SOFTWARE hive under %q", cand.dir.Name)
	}

	if cand.system != nil {
		if err := harvestHive(cand.system, blobs, hives, opts, func(h wim.RegistryHive) error {
			return applySystemHive(h, xml, opts)
		}); err != nil {
			if errors.Is(err, wim.ErrOutOfMemory) {
				return err
			}
			warnHarvest(opts, "reading SYSTEM hive: %v", err)
		}
	} else {
		warnHarvest(opts, "no System32/config/SYSTEM hive under %q", cand.dir.Name)
	}

	return nil
}

func harvestArch(kernel32 *wim.Dentry, blobs wim.BlobProvider, xml wim.XMLPropertySetter, opts *wim.Options) error {
	contents, err := readDentryContents(kernel32, blobs)
	if err != nil {
		return err
	}
	arch, err := peArch(contents)
	if err != nil {
		return err
	}
	return xml.SetProperty("WINDOWS/ARCH", strconv.Itoa(arch))
}

func harvestHive(dentry *wim.Dentry, blobs wim.BlobProvider, hives wim.RegistryHiveParser, opts *wim.Options, apply func(wim.RegistryHive) error) error {
	contents, err := readDentryContents(dentry, blobs)
	if err != nil {
		return err
	}
	hive, err := hives.ParseHive(contents)
	if err != nil {
		return err
	}
	return apply(hive)
}

func readDentryContents(dentry *wim.Dentry, blobs wim.BlobProvider) ([]byte, error) {
	hash := dentry.Inode.DefaultHash()
	if hash.IsZero() {
		return nil, errors.New("winxml: empty data stream")
	}
	r, err := blobs.OpenBlob(hash)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func warnHarvest(opts *wim.Options, format string, args ...interface{}) {
	wim.Warnf(opts, format, args...)
}
