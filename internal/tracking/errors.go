package tracking

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrJobNotFound   = errors.New("job not found")
	ErrDuplicate     = errors.New("tracked application already exists")
	ErrInvalidStatus = errors.New("invalid status")
)
