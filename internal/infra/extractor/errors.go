package extractor

import "errors"

var (
	// ErrInvalidURL indicates the URL failed validation before fetching.
	ErrInvalidURL = errors.New("invalid url")

	// ErrPrivateIP indicates the hostname resolves to a private address.
	ErrPrivateIP = errors.New("url resolves to private ip")

	// ErrTooManyRedirects indicates the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout indicates the fetch exceeded the configured timeout.
	ErrTimeout = errors.New("fetch timeout")

	// ErrBodyTooLarge indicates the response exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrNoContent indicates readability found no usable article text.
	ErrNoContent = errors.New("no readable content")
)
