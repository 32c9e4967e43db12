package serial

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// RetryConfig defines how often a failed open is tried again
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval"`
}

// DefaultRetryConfig keeps the worst case short enough for an interactive open
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		RetryInterval: 250 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second,
	}
}

// Validate checks if the retry configuration is valid
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// OpenWithRetry opens the port, trying again while the failure looks
// transient, such as a USB adapter that is still enumerating
func OpenWithRetry(settings LineSettings, retry RetryConfig) (*Port, error) {
	var port *Port
	err := withRetry(retry, time.Sleep, func() error {
		var err error
		port, err = Open(settings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// withRetry runs op until it succeeds, fails with an error that is not
// recoverable, or runs out of retries
func withRetry(retry RetryConfig, sleep func(time.Duration), op func() error) error {
	if err := retry.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	var lastErr error
	attempts := 0
	interval := retry.RetryInterval

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			sleep(interval)
			interval = min(time.Duration(float64(interval)*retry.BackoffFactor), retry.MaxInterval)
		}

		attempts++
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRecoverable(lastErr) {
			break
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// recoverablePatterns are error texts of failures that may clear up on
// their own
var recoverablePatterns = []string{
	"device busy",
	"resource busy",
	"resource temporarily unavailable",
	"timeout",
	"timed out",
	"no such device",
}

// IsRecoverable reports whether retrying the operation that failed with
// err could succeed
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range recoverablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
