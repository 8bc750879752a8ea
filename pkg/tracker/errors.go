package tracker

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

var (
	// ErrUnauthenticated means no token is configured or the tracker rejected it.
	ErrUnauthenticated = errors.New("not authenticated with the issue tracker")
	// ErrRepositoryNotSelected means an operation ran before owner/repo was set.
	ErrRepositoryNotSelected = errors.New("no repository selected")
)

// RequestError is a non-2xx response, or a transport failure with Status 0.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("issue tracker request failed: %s", e.Message)
	}
	return fmt.Sprintf("issue tracker request failed (%d): %s", e.Status, e.Message)
}

// mapError turns go-github errors into the tracker taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	status, message := 0, err.Error()

	var ghErr *github.ErrorResponse
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &ghErr):
		message = ghErr.Message
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
	case errors.As(err, &rateErr):
		message = rateErr.Message
		if rateErr.Response != nil {
			status = rateErr.Response.StatusCode
		}
	case errors.As(err, &abuseErr):
		message = abuseErr.Message
		if abuseErr.Response != nil {
			status = abuseErr.Response.StatusCode
		}
	}

	if status == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%s: %w", op, &RequestError{Status: status, Message: message})
}
