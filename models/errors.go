package models

import "fmt"

// ConfigError reports invalid startup configuration: a malformed blocklist
// entry, an empty profile pool, an unknown policy value. It is fatal at
// startup; session creation must not proceed past one.
type ConfigError struct {
	Item   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Item, e.Reason)
}

// NewConfigError builds a ConfigError for the named config item.
func NewConfigError(item, reasonFormat string, v ...interface{}) *ConfigError {
	return &ConfigError{Item: item, Reason: fmt.Sprintf(reasonFormat, v...)}
}

// InvalidURLError reports a request URL the interceptor could not parse
// into scheme+host. It is recovered locally as a fail-closed Block and
// never propagates as a crash.
type InvalidURLError struct {
	RawURL string
	Err    error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request URL %q: %v", e.RawURL, e.Err)
	}
	return fmt.Sprintf("invalid request URL %q", e.RawURL)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }
