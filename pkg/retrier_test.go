package pkg

import (
	"fmt"
	"testing"
	"time"
)

func withFastRetries(t *testing.T) {
	previous := RetryWait
	RetryWait = time.Millisecond
	t.Cleanup(func() { RetryWait = previous })
}

func TestWithoutRetry(t *testing.T) {
	withFastRetries(t)
	runs := 0

	err := WithRetry("test", func() error {
		runs++
		return nil
	})

	if err != nil {
		t.Error("Should not return error")
	}

	if runs != 1 {
		t.Error("Expected 1 run", runs)
	}
}

func TestWithRetry(t *testing.T) {
	withFastRetries(t)
	runs := 0

	err := WithRetry("test", func() error {
		runs++
		if runs == 3 {
			return nil
		}
		return fmt.Errorf("Error %d", runs)
	})

	if err != nil {
		t.Error("Should not return error")
	}

	if runs != 3 {
		t.Error("Expected only 3 runs, got", runs)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	withFastRetries(t)
	runs := 0

	err := WithRetry("test", func() error {
		runs++
		return fmt.Errorf("Error %d", runs)
	})

	if err == nil || err.Error() != "Error 5" {
		t.Error("Expected last error, got", err)
	}
	if runs != maxTries {
		t.Errorf("Expected %d runs, got %d", maxTries, runs)
	}
}

func TestRetryTimeout(t *testing.T) {
	results := map[int]time.Duration{
		0: 0,
		1: 1 * RetryWait,
		2: 4 * RetryWait,
		3: 9 * RetryWait,
		4: 16 * RetryWait,
	}

	for try, expected := range results {
		if timeout := getWaitTime(try); timeout != expected {
			t.Errorf("Try %d: Expected %d got %d", try, expected, timeout)
		}
	}
}
