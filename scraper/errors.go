package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fetch failures are sorted into the categories below before they reach the
// retry manager and the error metrics. Listing portals tend to answer
// unwanted crawl traffic with 403 or 429 rather than dropping the
// connection, so those two statuses get their own buckets.

// ErrTimeout covers request deadlines and dial timeouts.
type ErrTimeout struct{ Err error }

func (e ErrTimeout) Error() string { return fmt.Sprintf("timeout: %v", e.Err) }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection covers transport failures: refused, reset, DNS.
type ErrConnection struct{ Err error }

func (e ErrConnection) Error() string { return fmt.Sprintf("connection: %v", e.Err) }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden is an HTTP 403, usually the portal's bot detection.
type ErrForbidden struct{ Err error }

func (e ErrForbidden) Error() string { return fmt.Sprintf("forbidden: %v", e.Err) }
func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound is an HTTP 404. Listings get delisted between the list page
// fetch and the detail fetch, so some of these are expected on every run.
type ErrNotFound struct{ Err error }

func (e ErrNotFound) Error() string { return fmt.Sprintf("not_found: %v", e.Err) }
func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited is an HTTP 429 from portal throttling.
type ErrRateLimited struct{ Err error }

func (e ErrRateLimited) Error() string { return fmt.Sprintf("rate_limited: %v", e.Err) }
func (e ErrRateLimited) Unwrap() error { return e.Err }

// classifyError wraps a fetch failure in its category. Network-level
// failures take precedence over the HTTP status.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}

// errorTypeLabel maps a classified error to its metrics label.
func errorTypeLabel(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.As(err, &ErrTimeout{}):
		return "timeout"
	case errors.As(err, &ErrConnection{}):
		return "connection"
	case errors.As(err, &ErrForbidden{}):
		return "forbidden"
	case errors.As(err, &ErrNotFound{}):
		return "not_found"
	case errors.As(err, &ErrRateLimited{}):
		return "rate_limited"
	default:
		return "other"
	}
}
