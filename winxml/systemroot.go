package winxml

import (
	"strings"

	"github.com/Microsoft/go-wimlib/wim"
)

// systemRootCandidate is one top-level directory scored as a possible
// Windows system root, grounded on set_windows_specific_info's scan of
// every top-level directory in the image.
type systemRootCandidate struct {
	dir      *wim.Dentry
	kernel32 *wim.Dentry
	software *wim.Dentry
	system   *wim.Dentry
	score    int
}

// findSystemRoot scans root's immediate children for the directory that
// looks most like a Windows system root, scoring each candidate on the
// presence of System32\kernel32.dll, System32\config\SOFTWARE, and
// System32\config\SYSTEM (one point each), and preferring, on a tie, a
// directory case-insensitively named "Windows" - the same rule
// is_default_systemroot applies. A directory that scores 0 is not a
// candidate at all.
func findSystemRoot(root *wim.Dentry, opts *wim.Options) *systemRootCandidate {
	var best *systemRootCandidate

	wim.AscendChildren(root, func(child *wim.Dentry) bool {
		if !child.IsDirectory() {
			return true
		}
		cand := scoreCandidate(child, opts)
		if cand.score == 0 {
			return true
		}
		switch {
		case best == nil:
			best = cand
		case cand.score > best.score:
			best = cand
		case cand.score == best.score && !isDefaultSystemroot(best.dir) && isDefaultSystemroot(cand.dir):
			best = cand
		}
		return true
	})

	return best
}

func isDefaultSystemroot(d *wim.Dentry) bool {
	return strings.EqualFold(d.Name, "windows")
}

func scoreCandidate(dir *wim.Dentry, opts *wim.Options) *systemRootCandidate {
	cand := &systemRootCandidate{dir: dir}

	if k32, err := wim.Lookup(dir, "System32/kernel32.dll", wim.CaseInsensitive, opts); err == nil && !k32.IsDirectory() {
		cand.kernel32 = k32
		cand.score++
	}
	if sw, err := wim.Lookup(dir, "System32/config/SOFTWARE", wim.CaseInsensitive, opts); err == nil && !sw.IsDirectory() {
		cand.software = sw
		cand.score++
	}
	if sys, err := wim.Lookup(dir, "System32/config/SYSTEM", wim.CaseInsensitive, opts); err == nil && !sys.IsDirectory() {
		cand.system = sys
		cand.score++
	}

	return cand
}
