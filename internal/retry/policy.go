// internal/retry/policy.go
package retry

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Policy bounds one retry sequence. It carries no state between calls.
type Policy struct {
	MaxAttempts int           // total invocations, including the first
	BaseDelay   time.Duration // first backoff is 2x this
	HintBuffer  time.Duration // added to a provider-suggested wait
}

// DefaultPolicy 默认重试策略：最多5次，基础延迟4秒
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   4 * time.Second,
		HintBuffer:  2 * time.Second,
	}
}

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

var throttlingMarkers = []string{"429", "Quota", "RESOURCE_EXHAUSTED", "Overloaded"}

var retryHintPattern = regexp.MustCompile(`retry in ([\d.]+)s`)

func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// IsThrottling reports whether err is a rate-limit or transient-overload
// failure. These are the only retryable errors.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}
	switch statusOf(err) {
	case 429, 503:
		return true
	}
	msg := err.Error()
	for _, marker := range throttlingMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsPermissionDenied reports an HTTP 403, which is not a throttling error.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if statusOf(err) == 403 {
		return true
	}
	return strings.Contains(err.Error(), "403")
}

// ParseRetryHint extracts a "retry in N s" wait from an error message,
// rounded up to the millisecond.
func ParseRetryHint(msg string) (time.Duration, bool) {
	m := retryHintPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(math.Ceil(secs*1000)) * time.Millisecond, true
}

// NextDelay is the backoff step: a provider hint plus buffer wins, otherwise
// the previous delay doubles.
func NextDelay(last, hint time.Duration, hinted bool, buffer time.Duration) time.Duration {
	if hinted {
		return hint + buffer
	}
	return last * 2
}
