package dms

import "github.com/dom999/emeralddb-go/pkg/diag"

// Config holds the tunables for an Engine. Zero value is not usable
// directly; build one with WithDefaultOptions and the With* functions
// below, or simply pass Options to Open.
//
// Grounded on iamNilotpal-ignite/pkg/options/options.go's functional
// options pattern.
type Config struct {
	PageSize        uint32
	PagesPerSegment uint32
	MaxRecord       uint32

	// Strict enables the free-space accounting self-check after every
	// insert/remove/compact, recomputing a page's free_space from its
	// slot directory and returning INTERNAL on mismatch. Off by default
	// in Open (it costs a slot-directory scan per mutation); on by
	// default for tests via WithDefaultOptions.
	Strict bool

	Log *diag.Log
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithDefaultOptions seeds a Config with the geometry constants of
// constants.go and strict accounting enabled.
func WithDefaultOptions() Option {
	return func(c *Config) {
		c.PageSize = PageSize
		c.PagesPerSegment = PagesPerSegment
		c.MaxRecord = MaxRecord
		c.Strict = true
	}
}

// WithPageSize overrides the page size. Intended for tests exercising
// segment growth without allocating real SegmentSize-sized files.
func WithPageSize(n uint32) Option {
	return func(c *Config) { c.PageSize = n }
}

// WithPagesPerSegment overrides how many pages make up one segment.
func WithPagesPerSegment(n uint32) Option {
	return func(c *Config) { c.PagesPerSegment = n }
}

// WithMaxRecord overrides the largest payload insert will accept.
func WithMaxRecord(n uint32) Option {
	return func(c *Config) { c.MaxRecord = n }
}

// WithStrict toggles the free-space accounting self-check.
func WithStrict(on bool) Option {
	return func(c *Config) { c.Strict = on }
}

// WithLogger attaches a diagnostic sink. A nil Log is safe and falls back
// to a no-op.
func WithLogger(l *diag.Log) Option {
	return func(c *Config) { c.Log = l }
}

// newConfig builds the Config Open actually uses: the geometry defaults,
// strict accounting OFF (Open's default, overridable via WithStrict), then
// every caller-supplied option applied in order.
func newConfig(opts ...Option) Config {
	c := Config{
		PageSize:        PageSize,
		PagesPerSegment: PagesPerSegment,
		MaxRecord:       MaxRecord,
		Strict:          false,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Log == nil {
		c.Log = diag.NewNop()
	}
	return c
}
