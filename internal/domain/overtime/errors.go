package overtime

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid overtime transition")
	ErrNotPrompted       = errors.New("overtime has not been prompted yet")
	ErrAlreadyResponded  = errors.New("overtime prompt has already been answered")
	ErrStateConflict     = errors.New("overtime state changed concurrently")
	ErrNoOpenSession     = errors.New("no open attendance session")
)
