package pkg

import (
	"time"
)

const maxTries = 5

// RetryWait is the unit of the backoff between tries
var RetryWait = 500 * time.Millisecond

// WithRetry runs runner, and if it returns an error waits again, then tries again
func WithRetry(tag string, runner func() error) error {
	var err error
	for tries := 0; tries < maxTries; tries++ {
		err = runner()
		if err == nil {
			return nil
		}

		waitDuration := getWaitTime(tries)

		Log.Debugf("%s try: %d, failed with error, sleeping %s", tag, tries, waitDuration)

		// Wait exponentially RetryWait * x^2
		time.Sleep(waitDuration)
	}
	return err
}

func getWaitTime(tries int) time.Duration {
	return time.Duration(tries*tries) * RetryWait
}
