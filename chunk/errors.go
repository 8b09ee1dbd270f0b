package chunk

import "errors"

var (
	// ErrInvalidWindow is returned when the window size is not positive.
	ErrInvalidWindow = errors.New("window size must be greater than 0")

	// ErrInvalidOverlap is returned when overlap is negative or not smaller than the window size.
	ErrInvalidOverlap = errors.New("overlap must be >= 0 and smaller than window size")
)
