package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/adammathes/sharepreview/internal/social"
)

var (
	// ErrInvalidBase64 is wrapped by a DataURLError whose payload is not
	// valid base64.
	ErrInvalidBase64 = errors.New("invalid base64 payload")
	// ErrUnsupported reports a recognized format outside the platform's
	// allow-list.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrUnexpected covers states a well-formed caller never produces.
	ErrUnexpected = errors.New("unexpected image error")
)

// URLError reports a URL that could not be resolved to an absolute
// http(s) or data: URL.
type URLError struct {
	Raw string
	Err error
}

func (e *URLError) Error() string {
	return fmt.Sprintf("invalid image URL %q: %v", e.Raw, e.Err)
}

func (e *URLError) Unwrap() error { return e.Err }

// DataURLError reports a malformed data: URL.
type DataURLError struct {
	Err error
}

func (e *DataURLError) Error() string {
	return fmt.Sprintf("decoding data URL: %v", e.Err)
}

func (e *DataURLError) Unwrap() error { return e.Err }

// FetchError is a transport failure while downloading an image.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RequestError is a non-2xx response to an image request.
type RequestError struct {
	URL    string
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.Status)
}

// DecodeError covers unrecognized payloads and codec failures.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TooTinyError reports an image smaller than the minimum of every
// requested kind. Min is the minimum of the last kind tried.
type TooTinyError struct {
	Actual social.Dimensions
	Min    social.Dimensions
}

func (e *TooTinyError) Error() string {
	return fmt.Sprintf("image is %s, minimum is %s", e.Actual, e.Min)
}

// TooHeavyError reports a payload over the platform's byte limit.
type TooHeavyError struct {
	Actual int
	Max    int
}

func (e *TooHeavyError) Error() string {
	return fmt.Sprintf("image is %d bytes, maximum is %d", e.Actual, e.Max)
}

// IsCanceled reports whether err stems from context cancellation or a
// deadline rather than from the image itself.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
