package winxml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Microsoft/go-wimlib/wim"
)

// applySoftwareHive copies the handful of Microsoft\Windows NT\CurrentVersion
// values the harvester cares about onto xml, grounded on
// set_info_from_software_hive. Only an out-of-memory failure (from a
// registry read or a property write) is fatal; anything else is logged
// through opts and the remaining properties are still attempted.
func applySoftwareHive(hive wim.RegistryHive, xml wim.XMLPropertySetter, opts *wim.Options) error {
	const versionKey = `Microsoft\Windows NT\CurrentVersion`

	// Image flags.
	if err := copyString(hive, xml, opts, versionKey, "EditionID", "FLAGS"); err != nil {
		return err
	}
	// Image display name.
	if err := copyString(hive, xml, opts, versionKey, "ProductName", "DISPLAYNAME"); err != nil {
		return err
	}
	// Image display description.
	if err := copyString(hive, xml, opts, versionKey, "ProductName", "DISPLAYDESCRIPTION"); err != nil {
		return err
	}

	if err := copyString(hive, xml, opts, versionKey, "EditionID", "WINDOWS/EDITIONID"); err != nil {
		return err
	}
	if err := copyString(hive, xml, opts, versionKey, "InstallationType", "WINDOWS/INSTALLATIONTYPE"); err != nil {
		return err
	}
	if err := copyString(hive, xml, opts, versionKey, "ProductName", "WINDOWS/PRODUCTNAME"); err != nil {
		return err
	}

	major, hasMajor, err := intValue(hive, opts, versionKey, "CurrentMajorVersionNumber")
	if err != nil {
		return err
	}
	minor, hasMinor, err := intValue(hive, opts, versionKey, "CurrentMinorVersionNumber")
	if err != nil {
		return err
	}
	if !hasMajor || !hasMinor {
		v, verr := hive.StringValue(versionKey, "CurrentVersion")
		if verr != nil && errors.Is(verr, wim.ErrOutOfMemory) {
			return verr
		}
		if verr == nil {
			var m, n int64
			if _, err := fmt.Sscanf(v, "%d.%d", &m, &n); err == nil {
				major, hasMajor = m, true
				minor, hasMinor = n, true
			}
		}
	}

	var v Version
	if hasMajor {
		if err := setProperty(xml, "WINDOWS/VERSION/MAJOR", strconv.FormatInt(major, 10)); err != nil {
			return err
		}
		v.Major = uint8(major)
		if hasMinor {
			if err := setProperty(xml, "WINDOWS/VERSION/MINOR", strconv.FormatInt(minor, 10)); err != nil {
				return err
			}
			v.Minor = uint8(minor)
		}
	}

	// CurrentBuild is authoritative on modern Windows, but on older
	// registries it carries a dotted, human-readable string ("1.511.1
	// (Obsolete data - do not use)") instead of a bare build number; in
	// that case fall back to CurrentBuildNumber.
	build, berr := hive.StringValue(versionKey, "CurrentBuild")
	if berr != nil && errors.Is(berr, wim.ErrOutOfMemory) {
		return berr
	}
	if berr == nil && strings.Contains(build, ".") {
		build, berr = hive.StringValue(versionKey, "CurrentBuildNumber")
		if berr != nil && errors.Is(berr, wim.ErrOutOfMemory) {
			return berr
		}
	}
	if berr == nil && build != "" {
		if err := setProperty(xml, "WINDOWS/VERSION/BUILD", build); err != nil {
			return err
		}
		if n, err := strconv.ParseUint(build, 10, 16); err == nil {
			v.Build = uint16(n)
		}
	}

	if hasMajor {
		if err := setProperty(xml, "WINDOWS/VERSION/DISPLAY", v.String()); err != nil {
			return err
		}
	}
	return nil
}

// applySystemHive copies the ControlSet001-rooted values the harvester
// cares about onto xml, grounded on set_info_from_system_hive.
func applySystemHive(hive wim.RegistryHive, xml wim.XMLPropertySetter, opts *wim.Options) error {
	const windowsKey = `ControlSet001\Control\Windows`
	const uiLanguagesKey = `ControlSet001\Control\MUI\UILanguages`
	const productOptionsKey = `ControlSet001\Control\ProductOptions`
	const halKey = `ControlSet001\Control\Class\{4D36E966-E325-11CE-BFC1-08002BE10318}\0000`

	if spBuild, ok, err := intValue(hive, opts, windowsKey, "CSDBuildNumber"); err != nil {
		return err
	} else if ok {
		if err := setProperty(xml, "WINDOWS/VERSION/SPBUILD", strconv.FormatInt(spBuild, 10)); err != nil {
			return err
		}
	}
	if csdVersion, ok, err := intValue(hive, opts, windowsKey, "CSDVersion"); err != nil {
		return err
	} else if ok {
		if err := setProperty(xml, "WINDOWS/VERSION/SPLEVEL", strconv.FormatInt(csdVersion>>8, 10)); err != nil {
			return err
		}
	}

	if err := copyString(hive, xml, opts, productOptionsKey, "ProductType", "WINDOWS/PRODUCTTYPE"); err != nil {
		return err
	}
	if err := copyString(hive, xml, opts, productOptionsKey, "ProductSuite", "WINDOWS/PRODUCTSUITE"); err != nil {
		return err
	}
	if err := copyString(hive, xml, opts, halKey, "MatchingDeviceId", "WINDOWS/HAL"); err != nil {
		return err
	}

	subkeys, err := hive.Subkeys(uiLanguagesKey)
	if err != nil {
		if errors.Is(err, wim.ErrOutOfMemory) {
			return err
		}
		wim.Warnf(opts, "listing %s: %v", uiLanguagesKey, err)
	} else {
		for i, name := range subkeys {
			if err := setProperty(xml, fmt.Sprintf("WINDOWS/LANGUAGES/LANGUAGE[%d]", i+1), name); err != nil {
				return err
			}
		}
	}

	return setDefaultLanguage(hive, xml, opts)
}

func setDefaultLanguage(hive wim.RegistryHive, xml wim.XMLPropertySetter, opts *wim.Options) error {
	const nlsKey = `ControlSet001\Control\Nls\Language`

	raw, err := hive.StringValue(nlsKey, "InstallLanguage")
	if err != nil {
		if errors.Is(err, wim.ErrOutOfMemory) {
			return err
		}
		if !errors.Is(err, wim.ErrNotFound) {
			wim.Warnf(opts, "reading %s\\InstallLanguage: %v", nlsKey, err)
		}
		return nil
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 16, 16)
	if err != nil {
		wim.Warnf(opts, "unrecognized InstallLanguage %q", raw)
		return nil
	}
	name, ok := languageName(uint16(id))
	if !ok {
		wim.Warnf(opts, "unrecognized InstallLanguage %q", raw)
		return nil
	}
	return setProperty(xml, "WINDOWS/LANGUAGES/DEFAULT", name)
}

// copyString reads valueName under keyPath and, if present, writes it to
// property. A missing value is silently skipped; any other non-fatal
// failure is logged. Only out-of-memory (from the read or the write)
// propagates.
func copyString(hive wim.RegistryHive, xml wim.XMLPropertySetter, opts *wim.Options, keyPath, valueName, property string) error {
	v, err := hive.StringValue(keyPath, valueName)
	if err != nil {
		if errors.Is(err, wim.ErrOutOfMemory) {
			return err
		}
		if !errors.Is(err, wim.ErrNotFound) {
			wim.Warnf(opts, "reading %s\\%s: %v", keyPath, valueName, err)
		}
		return nil
	}
	if v == "" {
		return nil
	}
	return setProperty(xml, property, v)
}

// intValue reads valueName under keyPath as a base-10 integer. The second
// return reports whether a usable value was found; the error return
// carries only a fatal (out-of-memory) failure, matching StringValue's
// contract.
func intValue(hive wim.RegistryHive, opts *wim.Options, keyPath, valueName string) (int64, bool, error) {
	v, err := hive.StringValue(keyPath, valueName)
	if err != nil {
		if errors.Is(err, wim.ErrOutOfMemory) {
			return 0, false, err
		}
		if !errors.Is(err, wim.ErrNotFound) {
			wim.Warnf(opts, "reading %s\\%s: %v", keyPath, valueName, err)
		}
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		wim.Warnf(opts, "%s\\%s is not a number: %q", keyPath, valueName, v)
		return 0, false, nil
	}
	return n, true, nil
}

func setProperty(xml wim.XMLPropertySetter, path, value string) error {
	return xml.SetProperty(path, value)
}
