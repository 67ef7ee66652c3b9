package thumbnail

import "errors"

var (
	ErrEmptyTitle         = errors.New("title required")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidStyleKey    = errors.New("invalid style key")
	ErrNoImageReturned    = errors.New("no image returned")
)

// RemoteError is a transport or service failure of the image generator.
// Message is what the service reported and may be empty.
type RemoteError struct {
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "remote image generation failed"
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
