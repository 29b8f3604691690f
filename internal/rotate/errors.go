package rotate

import "fmt"

// ConfigError reports an invalid or ill-typed query argument. It is fatal for
// the call that produced it and leaves the registry untouched.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("query option %q: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExtractionError reports a date-like substring whose calendar components are
// out of range (month 13, hour 25, Feb 30).
type ExtractionError struct {
	Text string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract date from %q: %v", e.Text, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func configErr(key string, format string, args ...any) error {
	return &ConfigError{Key: key, Err: fmt.Errorf(format, args...)}
}
