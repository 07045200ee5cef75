package review

import "github.com/rotisserie/eris"

var (
	// ErrPlaceNotFound is returned when a requested place does not exist.
	ErrPlaceNotFound = eris.New("review: place not found")
	// ErrInvalidParameter is returned for out-of-range query parameters.
	ErrInvalidParameter = eris.New("review: invalid parameter")
	// ErrTimeout is returned when a cluster computation exceeds the configured ceiling.
	ErrTimeout = eris.New("review: computation timed out")
)

func invalidParam(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidParameter, format, args...)
}
