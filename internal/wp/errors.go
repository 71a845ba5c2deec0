package wp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthMissing is returned when a bearer call is attempted without a
	// stored token.
	ErrAuthMissing = errors.New("authentication error: no stored token")

	// ErrUnsupportedImage rejects uploads that are not JPEG or PNG.
	ErrUnsupportedImage = errors.New("only JPEG or PNG images are allowed")
)

// RemoteError is a non-success HTTP response from the API.
type RemoteError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, msg)
}

// NetworkError wraps a transport failure (the request never got a response).
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Status == 404
}

// UserMessage extracts the text shown to the user for err: the remote
// message when the API supplied one, otherwise the error string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if msg := strings.TrimSpace(remote.Message); msg != "" {
			return msg
		}
		return fmt.Sprintf("server returned status %d", remote.Status)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "network error: " + netErr.Err.Error()
	}
	return err.Error()
}

// CheckImageType accepts exactly image/jpeg and image/png.
func CheckImageType(contentType string) error {
	switch contentType {
	case "image/jpeg", "image/png":
		return nil
	default:
		return fmt.Errorf("%w (got %q)", ErrUnsupportedImage, contentType)
	}
}
