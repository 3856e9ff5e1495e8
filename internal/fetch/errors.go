package fetch

import "fmt"

// RequestError carries a transport-level failure of the real download.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusError reports an HTTP error status on the download response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download failed with HTTP status %d", e.Status)
}

// TooLargeError is returned when the declared or streamed size passes the
// limit. Size is the declared Content-Length when the header gave the game
// away, or the running byte count at the moment the stream was cut off.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("content size %d exceeds the %d byte limit", e.Size, e.Limit)
}

// DecodeError is returned when no encoding in the fallback chain could
// decode the downloaded bytes.
type DecodeError struct{}

func (e *DecodeError) Error() string {
	return "content could not be decoded with any supported encoding"
}
