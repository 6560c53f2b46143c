package birthday

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid month/day")
	ErrInvalidTimeOfDay   = errors.New("invalid time of day")
	ErrInvalidTimezone    = errors.New("unknown timezone")
	ErrNoTimezone         = errors.New("no timezone given and group has no default")
	ErrInvalidLocalTime   = errors.New("local time does not exist in timezone")
	ErrGroupExists        = errors.New("group is already set up")
	ErrStoreUnavailable   = errors.New("data store unavailable")
	ErrPersistenceFailure = errors.New("backing store operation failed")
)
