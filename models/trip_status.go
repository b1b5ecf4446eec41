package models

// TripStatus is a state in the trip lifecycle
type TripStatus string

const (
	StatusPending    TripStatus = "pending"
	StatusApproved   TripStatus = "approved"
	StatusRejected   TripStatus = "rejected"
	StatusInProgress TripStatus = "in-progress"
	StatusCompleted  TripStatus = "completed"
)

// ParseTripStatus returns false for values outside the lifecycle
func ParseTripStatus(s string) (TripStatus, bool) {
	switch TripStatus(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress, StatusCompleted:
		return TripStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no transition may leave this status
func (s TripStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted:
		return true
	case StatusPending, StatusApproved, StatusInProgress:
		return false
	}
	return false
}

// CanTransitionTo reports whether from -> to is an edge of the lifecycle graph:
//
//	pending -> approved | rejected
//	approved -> in-progress
//	in-progress -> completed
func (s TripStatus) CanTransitionTo(to TripStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted
	case StatusRejected, StatusCompleted:
		return false
	}
	return false
}
