package bus

import (
	"fmt"
	"strings"

	"github.com/opensource-insurance/heron/internal/domain"
)

// New creates a new event bus based on configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// matchKey reports whether a routing key matches a subscription pattern.
// A pattern is either a literal key or ends with a "*" segment, which
// matches one or more trailing segments ("policy.*" matches both
// "policy.created" and "policy.status.changed").
func matchKey(pattern, key string) bool {
	if pattern == key {
		return true
	}
	if pattern == "*" {
		return key != ""
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(key, prefix+".")
	}
	return false
}
