package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Retryable},
		{"sentinel", ErrAuth, Fatal},
		{"wrapped sentinel", fmt.Errorf("transcribe: %w", ErrAuth), Fatal},
		{"status 401", statusErr(401), Fatal},
		{"status 429", statusErr(429), Throttled},
		{"status 500", statusErr(500), Retryable},
		{"status 400 mentioning bot", fmt.Errorf("%w: bot", statusErr(400)), Retryable},
		{"text 401", errors.New("Error code: 401 - {'error': {'code': 'invalid_api_key'}}"), Fatal},
		{"text invalid key", errors.New("invalid_api_key"), Fatal},
		{"yt-dlp bot check", errors.New("ERROR: Sign in to confirm you're not a bot"), Throttled},
		{"captcha", errors.New("CAPTCHA required"), Throttled},
		{"text 429", errors.New("HTTP Error 429: Too Many Requests"), Throttled},
		{"too many requests", errors.New("too many requests"), Throttled},
		{"robot is not bot", errors.New("robots.txt disallowed"), Retryable},
		{"4290 is not 429", errors.New("read 4290 bytes"), Retryable},
		{"generic", errors.New("connection reset by peer"), Retryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsAuth(ErrAuth))
	assert.False(t, IsAuth(nil))
	assert.True(t, IsThrottled(errors.New("bot detected")))
	assert.False(t, IsThrottled(nil))
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "throttled", Throttled.String())
	assert.Equal(t, "retryable", Retryable.String())
}
