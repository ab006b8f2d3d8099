package contest

import (
	"errors"
	"fmt"
)

// ErrConfig matches every ConfigError via errors.Is.
var ErrConfig = errors.New("configuration error")

// ConfigError reports invalid session input. It is always raised before any
// node task starts.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Invalid builds a ConfigError.
func Invalid(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// ValidateNodeIDs checks a node list: at least one entry, no blank ids, no
// duplicates.
func ValidateNodeIDs(ids []string) error {
	if len(ids) == 0 {
		return Invalid("nodes", "at least one node identifier is required")
	}
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if id == "" {
			return Invalid("nodes", fmt.Sprintf("entry %d is empty", i+1))
		}
		if seen[id] {
			return Invalid("nodes", fmt.Sprintf("duplicate node %q", id))
		}
		seen[id] = true
	}
	return nil
}
