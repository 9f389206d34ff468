package buffer

import (
	"fmt"
	"strings"
)

// FlushMode selects where the publish call happens relative to the buffer lock.
type FlushMode int

const (
	// FlushInline publishes while holding the buffer lock.
	FlushInline FlushMode = iota

	// FlushDetached swaps the buffer out under the lock and publishes it
	// after releasing the lock.
	FlushDetached
)

// String returns the config name of the mode.
func (m FlushMode) String() string {
	switch m {
	case FlushInline:
		return "inline"
	case FlushDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// ParseFlushMode parses "inline" or "detached". An empty string is inline.
func ParseFlushMode(s string) (FlushMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inline":
		return FlushInline, nil
	case "detached":
		return FlushDetached, nil
	default:
		return FlushInline, fmt.Errorf("unknown flush mode %q", s)
	}
}
