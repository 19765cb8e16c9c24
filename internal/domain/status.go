package domain

import "fmt"

// Status is the lifecycle state of a policy request.
type Status string

const (
	StatusReceived  Status = "RECEIVED"
	StatusValidated Status = "VALIDATED"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusReceived,
		StatusValidated,
		StatusPending,
		StatusApproved,
		StatusRejected,
		StatusCancelled,
	}
}

// transitions is the single authoritative transition table. An empty set
// means the status is terminal.
var transitions = map[Status]map[Status]bool{
	StatusReceived: {
		StatusValidated: true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusValidated: {
		StatusPending:   true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusPending: {
		StatusApproved:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

// CanTransition reports whether a policy request may move from one status
// to another. It is a pure predicate and never fails: unknown or terminal
// source statuses simply yield false. The zero value of Status (an unset
// request) may only move to RECEIVED.
func CanTransition(from, to Status) bool {
	if from == "" {
		return to == StatusReceived
	}
	if from == to {
		return false
	}
	return transitions[from][to]
}

// Terminal reports whether a status has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus converts the wire representation of a status.
func ParseStatus(s string) (Status, error) {
	for _, known := range AllStatuses() {
		if s == string(known) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}
