package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMediaType is returned for a media type with no extension table.
	ErrUnknownMediaType = errors.New("media: unknown media type")
	// ErrUnregisteredField is a configuration error: the (entity, field) pair has no base path.
	ErrUnregisteredField = errors.New("media: unregistered entity field")
	// ErrSuffixExhausted means no free URL was found within the attempt limit.
	ErrSuffixExhausted = errors.New("media: unique url attempts exhausted")
	// ErrConflict signals that the store rejected a resolved URL as already taken.
	ErrConflict = errors.New("media: already existing name")
	// ErrInvalidOperation is returned for a presign operation other than read or write.
	ErrInvalidOperation = errors.New("media: invalid presign operation")
	// ErrPresign wraps failures of the object storage presigner.
	ErrPresign = errors.New("media: presign failed")
)

// ValidationError reports a rejected upload filename. Field is the request key
// (e.g. "audio_filename").
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
