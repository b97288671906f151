package wim

import (
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/go-wimlib/prefixcode"
)

const defaultRootBits = 9

// Options configures tree parsing and path resolution. The zero value is
// usable: platform-default case sensitivity, logrus's standard logger, and
// the prefix-code decoder's default root table size.
type Options struct {
	caseSensitivity CaseSensitivity
	logger          logrus.FieldLogger
	rootBits        int
}

// Option mutates an Options value being built up by NewOptions.
type Option func(*Options)

// WithCaseSensitivity overrides the process-wide case-sensitivity default
// for path lookups made with these Options that pass PlatformDefault.
// Inserts are unaffected: they always maintain both name indexes.
func WithCaseSensitivity(c CaseSensitivity) Option {
	return func(o *Options) { o.caseSensitivity = c }
}

// WithLogger directs non-fatal parse anomalies (§4.C.2, §4.E) to l instead
// of logrus's standard logger. l may be a *logrus.Logger or a
// *logrus.Entry, so callers can inject a logger with preset fields.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.logger = l }
}

// WithRootBits sets the root table size that Options.DecodeTable passes to
// prefixcode.BuildDecodeTable (e.g. for a MetadataResourceProvider
// implementation shared with the compression layer). The tree parser
// itself does not decode prefix codes and does not read it.
func WithRootBits(bits int) Option {
	return func(o *Options) { o.rootBits = bits }
}

// NewOptions builds an Options from a list of Option values.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		caseSensitivity: PlatformDefault,
		rootBits:        defaultRootBits,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DecodeTable builds a prefixcode.DecodeTable for the canonical code
// described by lens, using this Options' configured root table size (see
// WithRootBits). A MetadataResourceProvider implementation that shares
// this package's block-decompression layer calls through here so its
// root table size stays under the same caller-supplied tuning knob as
// everything else in Options, without this package needing to depend on
// or know about any particular compression format.
func (o *Options) DecodeTable(lens []uint8, maxCodewordLen int) (*prefixcode.DecodeTable, error) {
	bits := defaultRootBits
	if o != nil && o.rootBits != 0 {
		bits = o.rootBits
	}
	if bits > maxCodewordLen {
		bits = maxCodewordLen
	}
	return prefixcode.BuildDecodeTable(lens, bits, maxCodewordLen)
}

func (o *Options) log() logrus.FieldLogger {
	if o == nil || o.logger == nil {
		return logrus.StandardLogger()
	}
	return o.logger
}

func warnf(o *Options, format string, args ...interface{}) {
	o.log().WithField("component", "wim").Warnf(format, args...)
}

// Warnf lets other packages built on top of this one (the Windows metadata
// harvester in particular) report non-fatal anomalies through the same
// logger and field convention as this package's own parse warnings.
func Warnf(o *Options, format string, args ...interface{}) {
	warnf(o, format, args...)
}
