package subscription

import "strings"

// Status is the subscription state mirrored from the billing provider.
// Values the provider reports that are not listed here are carried through
// verbatim.
type Status string

const (
	// StatusUnset means nothing was ever recorded. It is reported as
	// StatusFree, see Effective.
	StatusUnset             Status = ""
	StatusFree              Status = "free"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusCanceling         Status = "canceling"
	StatusCanceled          Status = "canceled"
	StatusPastDue           Status = "past_due"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

// FreePlanName is reported when no plan is recorded.
const FreePlanName = "Free"

// ParseStatus normalises a raw provider status.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "cancelled":
		return StatusCanceled
	case "cancelling":
		return StatusCanceling
	}
	return Status(s)
}

// Effective maps StatusUnset to StatusFree.
func (s Status) Effective() Status {
	if s == StatusUnset {
		return StatusFree
	}
	return s
}

// IsKnown reports whether s is one of the declared statuses.
func (s Status) IsKnown() bool {
	switch s {
	case StatusUnset, StatusFree, StatusTrialing, StatusActive, StatusCanceling, StatusCanceled,
		StatusPastDue, StatusIncomplete, StatusIncompleteExpired, StatusUnpaid, StatusPaused:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
