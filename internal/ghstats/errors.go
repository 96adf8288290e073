package ghstats

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// Kind partitions upstream failures into the conditions the cache gateway
// and the API surface care about.
type Kind int

const (
	// KindRateLimited means the GitHub quota is exhausted. Triggers the
	// stale-cache / synthetic-default fallback cascade.
	KindRateLimited Kind = iota
	// KindNotFound means the user or repository does not exist.
	KindNotFound
	// KindMalformedResponse means the response body could not be decoded.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// APIError tags an upstream failure with its Kind.
type APIError struct {
	Kind  Kind
	cause error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: %s: %v", e.Kind, e.cause)
}

func (e *APIError) Unwrap() error { return e.cause }

// classify maps go-github errors onto the error taxonomy. Errors that fit no
// kind (network failures, context cancellation) pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Kind: KindRateLimited, cause: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{Kind: KindRateLimited, cause: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &APIError{Kind: KindRateLimited, cause: err}
		case http.StatusNotFound:
			return &APIError{Kind: KindNotFound, cause: err}
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &APIError{Kind: KindMalformedResponse, cause: err}
	}

	return err
}

func isKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsRateLimited reports whether err signals quota exhaustion.
func IsRateLimited(err error) bool { return isKind(err, KindRateLimited) }

// IsNotFound reports whether err signals an unknown user or repository.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsMalformed reports whether err signals an undecodable response.
func IsMalformed(err error) bool { return isKind(err, KindMalformedResponse) }
