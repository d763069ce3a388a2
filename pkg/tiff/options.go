package tiff

import "log/slog"

// Progress receives status messages during long IFD scans. It must not
// block and has no influence on the result.
type Progress interface {
	Status(msg string)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(msg string)

func (f ProgressFunc) Status(msg string) { f(msg) }

type nopProgress struct{}

func (nopProgress) Status(string) {}

const (
	// progressInterval is how many IFDs are opened between status messages.
	progressInterval = 50
	// debugIFDs is how many IFDs have their tags logged in debug mode.
	debugIFDs = 10
)

type config struct {
	progress    Progress
	logger      *slog.Logger
	debug       bool
	mmLimit     int
	fullTagScan bool
}

func defaultConfig() config {
	return config{
		progress: nopProgress{},
		mmLimit:  1,
	}
}

// Option configures a Decoder
type Option func(*config)

// WithProgress sets the status sink.
func WithProgress(p Progress) Option {
	return func(c *config) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithDebug logs every tag of the first IFDs at debug level.
func WithDebug() Option {
	return func(c *config) {
		c.debug = true
	}
}

// WithMicroManagerMetadataLimit sets how many IFDs have their Micro-Manager
// metadata decoded. A negative value decodes all of them.
func WithMicroManagerMetadataLimit(n int) Option {
	return func(c *config) {
		c.mmLimit = n
	}
}

// WithFullTagScan disables the optimisations that rely on ascending tag
// order: entries of an unsorted IFD are dispatched in tag order and the
// pixel-data-only cutoff is ignored.
func WithFullTagScan() Option {
	return func(c *config) {
		c.fullTagScan = true
	}
}
