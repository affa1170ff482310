package door

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the store and knowledge layers. Callers wrap
// them with the offending code or path; the router maps them to protocol
// error codes with errors.Is.
var (
	ErrDoorNotFound  = errors.New("door not found")
	ErrIndexNotFound = errors.New("index not found")
	ErrDoorExists    = errors.New("door already exists")
	ErrInvalidDoor   = errors.New("invalid door")
)

// ParseError reports a stored document or index that is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFound wraps ErrDoorNotFound with the missing code.
func NotFound(code string) error {
	return fmt.Errorf("%w: %s", ErrDoorNotFound, code)
}
