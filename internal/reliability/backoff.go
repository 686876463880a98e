package reliability

import "time"

// LinearBackoff computes the wait before retrying a throttled call. The
// schedule grows linearly with the attempt number (base, 2*base, 3*base, ...)
// and stays bounded by the caller's attempt budget.
func LinearBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}
