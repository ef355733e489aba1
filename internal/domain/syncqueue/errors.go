package syncqueue

import "errors"

var (
	ErrItemNotFound    = errors.New("sync item not found")
	ErrAlreadySynced   = errors.New("sync item is already synced")
	ErrFlushInProgress = errors.New("a flush is already running for this queue")
	ErrInvalidPayload  = errors.New("invalid sync payload")
	ErrUnsupportedOp   = errors.New("unsupported operation type")
	ErrUnauthorized    = errors.New("unauthorized to access this sync item")
)
