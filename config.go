// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

const (
	// defaultAlignment is the architecture alignment quantum: every
	// payload pointer returned is a multiple of this many bytes.
	defaultAlignment = 16
	// defaultNumClasses is the number of segregated free-list bins.
	defaultNumClasses = 10
	// defaultBytesPerClass sizes each bin's byte span.
	defaultBytesPerClass = 128
	// defaultMMapThreshold is the payload size above which a request is
	// promoted to a dedicated page mapping instead of heap space.
	defaultMMapThreshold = 128 * 1024
	// defaultGCIntervalMS is the collector task's inter-cycle sleep.
	defaultGCIntervalMS = 100

	// magicValue tags a live allocator header; distinct from both
	// canary values so a stray canary-shaped word can never be mistaken
	// for a header.
	magicValue uint32 = 0xA110C8ED
	// headCanaryValue guards the leading edge of a block.
	headCanaryValue uint32 = 0xFEEDFACE
	// tailCanaryValue guards the trailing edge of a block.
	tailCanaryValue uint32 = 0xC0FFEEEE
)

// Config holds the allocator's compile-time-equivalent parameters. All of
// them are fixed at construction (via Option) and read-only afterwards;
// there is no environment/file-driven reconfiguration, matching the
// teacher's zero-value-is-ready-to-use Allocator.
type Config struct {
	// Alignment is the alignment quantum in {1,2,4,8,16} bytes.
	Alignment int
	// NumClasses is the number of free-list bins (N ≥ 1).
	NumClasses int
	// BytesPerClass sizes each bin's byte span (> 0).
	BytesPerClass int
	// MMapThreshold is the payload-size cutoff for the large-block path.
	MMapThreshold int
	// GCIntervalMS is the collector's inter-cycle sleep, in milliseconds.
	GCIntervalMS int

	// Logger receives diagnostic messages. Defaults to NopLogger.
	Logger Logger
	// BreakSource services heap growth/shrink. Defaults to the OS break
	// emulation in break_unix.go / break_windows.go.
	BreakSource BreakSource
	// PageMapper services the large-block path. Defaults to the OS mmap
	// binding in mmap_unix.go / mmap_windows.go.
	PageMapper PageMapper
	// TaskHost hosts the collector's background cycle. Defaults to a
	// plain goroutine.
	TaskHost TaskHost

	// MagicValue, HeadCanaryValue, TailCanaryValue are distinct 32-bit
	// constants; defaulted but overridable for fault-injection testing.
	MagicValue      uint32
	HeadCanaryValue uint32
	TailCanaryValue uint32
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithAlignment sets the alignment quantum. Must be a power of two in
// {1,2,4,8,16}; New rejects any other value with a KindInval error.
func WithAlignment(n int) Option { return func(c *Config) { c.Alignment = n } }

// WithSizeClasses sets the number of segregated free-list bins.
func WithSizeClasses(n int) Option { return func(c *Config) { c.NumClasses = n } }

// WithBytesPerClass sets the byte span of each free-list bin.
func WithBytesPerClass(n int) Option { return func(c *Config) { c.BytesPerClass = n } }

// WithMMapThreshold sets the payload-size cutoff for the large-block path.
func WithMMapThreshold(n int) Option { return func(c *Config) { c.MMapThreshold = n } }

// WithGCInterval sets the collector's inter-cycle sleep in milliseconds.
func WithGCInterval(ms int) Option { return func(c *Config) { c.GCIntervalMS = ms } }

// WithLogger installs a diagnostic sink.
func WithLogger(l Logger) Option { return func(c *Config) { c.Logger = l } }

// WithBreakSource installs a custom heap-break provider (tests substitute
// an in-memory fake here).
func WithBreakSource(b BreakSource) Option { return func(c *Config) { c.BreakSource = b } }

// WithPageMapper installs a custom large-block page provider.
func WithPageMapper(p PageMapper) Option { return func(c *Config) { c.PageMapper = p } }

// WithTaskHost installs a custom host for the collector's background
// task (tests substitute a synchronous fake here to avoid goroutine
// timing).
func WithTaskHost(h TaskHost) Option { return func(c *Config) { c.TaskHost = h } }

func defaultConfig() Config {
	return Config{
		Alignment:       defaultAlignment,
		NumClasses:      defaultNumClasses,
		BytesPerClass:   defaultBytesPerClass,
		MMapThreshold:   defaultMMapThreshold,
		GCIntervalMS:    defaultGCIntervalMS,
		Logger:          NopLogger{},
		MagicValue:      magicValue,
		HeadCanaryValue: headCanaryValue,
		TailCanaryValue: tailCanaryValue,
	}
}

func isValidAlignment(n int) bool {
	switch n {
	case 1, 2, 4, 8, 16:
		return true
	default:
		return false
	}
}

// roundup rounds n up to the nearest multiple of m, m a power of two.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }
