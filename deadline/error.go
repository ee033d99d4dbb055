package deadline

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that the safety margin was reached before the
// supervised work finished. Remaining and Elapsed are snapshots taken when
// the error was built.
type TimeoutError struct {
	Message   string
	Remaining time.Duration
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "deadline exceeded"
	}
	return fmt.Sprintf("%s (remaining %s, elapsed %s)", msg, e.Remaining, e.Elapsed)
}

// IsTimeout reports whether err is (or wraps) a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
