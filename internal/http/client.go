package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Common errors.
var (
	ErrRangeNotSupported  = errors.New("http: server does not support range requests")
	ErrInvalidRangeOffset = errors.New("http: invalid range offset")
	ErrNotFound           = errors.New("http: resource not found")
	ErrForbidden          = errors.New("http: access forbidden")
	ErrUnauthorized       = errors.New("http: unauthorized")
	ErrServerError        = errors.New("http: server error")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// Timeout for the whole request, including the body read.
	// Zero means no timeout; a streaming download has no natural
	// upper bound, so zero is the default.
	Timeout time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 10,
	}
}

// Response is the engine-facing view of one GET response.
type Response struct {
	// Body streams the bytes of this response. Always non-nil on a nil
	// error; may be empty (e.g. a satisfied-nothing range probe).
	Body io.ReadCloser

	// ContentLength is the declared length of this response's body,
	// normalized to 0 when the server did not declare one.
	ContentLength int64

	// Size is the total size of the whole resource when the server
	// declared it via Content-Range, else 0.
	Size int64
}

// Client is a thin HTTP client for single-connection file downloads.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost == 0 {
		opts.MaxIdleConnsPerHost = 10
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // We want raw bytes so on-disk length matches offsets
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Get performs a plain GET request for the whole resource.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &Response{
		Body:          resp.Body,
		ContentLength: normalizeLength(resp.ContentLength),
	}, nil
}

// GetFrom performs a GET request with a Range header asking for bytes from
// offset onward. ContentLength on the returned Response is the declared
// length of the remaining bytes.
//
// A 416 response means the offset is at or past the end of the resource;
// it is returned as a Response with an empty body and ContentLength 0,
// with Size filled in from the Content-Range header when present.
func (c *Client) GetFrom(ctx context.Context, url string, offset int64) (*Response, error) {
	value, err := rangeHeaderValue(offset)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Range", value)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		var size int64
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if _, _, total, err := ParseContentRange(cr); err == nil && total > 0 {
				size = total
			}
		}
		resp.Body.Close()
		return &Response{Body: http.NoBody, Size: size}, nil
	}

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if err := checkStatusCode(resp.StatusCode); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// A 200 without Content-Range is the server ignoring the range
	// request and sending the whole resource from offset 0.
	if resp.StatusCode == http.StatusOK && resp.Header.Get("Content-Range") == "" {
		resp.Body.Close()
		return nil, ErrRangeNotSupported
	}

	out := &Response{
		Body:          resp.Body,
		ContentLength: normalizeLength(resp.ContentLength),
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if _, _, total, err := ParseContentRange(cr); err == nil && total > 0 {
			out.Size = total
		}
	}

	return out, nil
}

// rangeHeaderValue builds the open-ended Range header value for offset.
func rangeHeaderValue(offset int64) (string, error) {
	if offset < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidRangeOffset, offset)
	}
	return fmt.Sprintf("bytes=%d-", offset), nil
}

// normalizeLength maps net/http's "unknown" content length (-1) to 0.
func normalizeLength(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total may be -1 if unknown. For an
// unsatisfied-range form ("bytes */total") start and end are both -1.
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total, bytes start-end/* or bytes */total
	header = strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	if parts[0] == "*" {
		start, end = -1, -1
	} else {
		rangeParts := strings.Split(parts[0], "-")
		if len(rangeParts) != 2 {
			return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
		}

		start, err = strconv.ParseInt(rangeParts[0], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
		}

		end, err = strconv.ParseInt(rangeParts[1], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
		}
	}

	if parts[1] == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
		}
	}

	return start, end, total, nil
}
