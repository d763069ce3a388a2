package tiff

import "errors"

var (
	// ErrFormat reports a structural violation of the TIFF container.
	ErrFormat = errors.New("tiff: format error")
	// ErrUnsupported reports a valid TIFF layout this package cannot read.
	ErrUnsupported = errors.New("tiff: unsupported")
	// ErrEstimateCompressed is returned when an image count estimate is
	// requested for a compressed file.
	ErrEstimateCompressed = errors.New("tiff: cannot estimate image count for compressed data")
)
