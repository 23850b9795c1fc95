package assertion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// Unit aliases accepted after a number, e.g. "2 days", "10 mins", "2.5 hrs".
var lifespanPattern = regexp.MustCompile(`(?i)^(-?\d*\.?\d+) *(milliseconds?|msecs?|ms|seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|years?|yrs?|y)$`)

const year = time.Duration(365.25 * 24 * float64(time.Hour))

// ParseLifespan converts an expression such as "299s", "15m", "1h", "2 days"
// or "1h30m" into a whole number of seconds. A bare integer is taken as
// seconds.
func ParseLifespan(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty lifespan", ErrSigning)
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if m := lifespanPattern.FindStringSubmatch(expr); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid lifespan %q: %w", ErrSigning, expr, err)
		}
		return time.Duration(n * float64(lifespanUnit(m[2]))).Truncate(time.Second), nil
	}
	d, err := str2duration.ParseDuration(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid lifespan %q: %w", ErrSigning, expr, err)
	}
	return d.Truncate(time.Second), nil
}

func lifespanUnit(unit string) time.Duration {
	switch strings.ToLower(unit) {
	case "milliseconds", "millisecond", "msecs", "msec", "ms":
		return time.Millisecond
	case "seconds", "second", "secs", "sec", "s":
		return time.Second
	case "minutes", "minute", "mins", "min", "m":
		return time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		return time.Hour
	case "days", "day", "d":
		return 24 * time.Hour
	case "weeks", "week", "w":
		return 7 * 24 * time.Hour
	default:
		return year
	}
}
