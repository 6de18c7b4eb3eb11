// Package failure classifies pipeline errors into the three outcomes the
// driver acts on: halt the run, cool down, or skip the item.
//
// Structured signals win. Text matching is a fallback for errors that come
// back from external tools (yt-dlp, ffmpeg) as plain messages.
package failure

import (
	"errors"
	"net/http"
	"regexp"
)

// Kind is the outcome class of a failed operation.
type Kind int

const (
	// Retryable covers any ordinary failure: log it, leave the item pending, move on.
	Retryable Kind = iota
	// Throttled means the source is rate limiting or challenging automated access.
	Throttled
	// Fatal means the credential was rejected and every remaining item would fail too.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Throttled:
		return "throttled"
	case Fatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// ErrAuth marks a rejected credential (HTTP 401 or equivalent).
var ErrAuth = errors.New("authentication failed")

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

var (
	authPattern     = regexp.MustCompile(`(?i)\b401\b|invalid_api_key|incorrect api key`)
	throttlePattern = regexp.MustCompile(`(?i)\bbot\b|captcha|\b429\b|too many requests`)
)

// Classify maps err to a Kind. A nil error is Retryable by convention; callers
// only classify failures.
func Classify(err error) Kind {
	if err == nil {
		return Retryable
	}
	if errors.Is(err, ErrAuth) {
		return Fatal
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusUnauthorized:
			return Fatal
		case http.StatusTooManyRequests:
			return Throttled
		}
		return Retryable
	}
	msg := err.Error()
	if authPattern.MatchString(msg) {
		return Fatal
	}
	if throttlePattern.MatchString(msg) {
		return Throttled
	}
	return Retryable
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	return err != nil && Classify(err) == Fatal
}

// IsThrottled reports whether err looks like source-side blocking.
func IsThrottled(err error) bool {
	return err != nil && Classify(err) == Throttled
}
