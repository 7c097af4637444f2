package errors

import "errors"

var (
	ErrRecordNotFound  = errors.New("record with provided key was not found")
	ErrNodeNotFound    = errors.New("node was not found in the record tree")
	ErrInvalidRecord   = errors.New("invalid record text")
	ErrIllegalMove     = errors.New("illegal move")
	ErrSessionNotFound = errors.New("session was not found")
	ErrEngineNotReady  = errors.New("analysis engine is not running")
)
