package wim

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseSensitivity selects how a path component or sibling-name comparison
// treats case. It is used both as a process-wide default (see
// defaultCaseSensitive, set once during package init from a GOOS-tagged
// file, never mutated afterward) and as a per-call override.
type CaseSensitivity int

const (
	// PlatformDefault defers to the process-wide default: insensitive on
	// Windows-like platforms, sensitive everywhere else.
	PlatformDefault CaseSensitivity = iota
	CaseSensitive
	CaseInsensitive
)

// resolve turns PlatformDefault into a concrete sensitivity.
func (c CaseSensitivity) resolve() CaseSensitivity {
	if c != PlatformDefault {
		return c
	}
	if defaultCaseSensitive {
		return CaseSensitive
	}
	return CaseInsensitive
}

var caseFolder = cases.Upper(language.Und)

// foldName returns the case-insensitive comparison key for a long name:
// its Unicode-aware uppercase form. This gives folding closer to Windows
// NLS behavior than a hand-rolled ASCII-only uppercase would, at the cost
// of depending on golang.org/x/text.
func foldName(name string) string {
	return caseFolder.String(name)
}
