package model

// Status is the lifecycle state of a booking. It is a closed set: the
// scheduler owns every write to it and all changes go through CanTransition.
type Status string

const (
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// transitions encodes the legal lifecycle moves. Cancelled is terminal.
// Rejected can only leave via cascade promotion back to Approved.
var transitions = map[Status][]Status{
	StatusApproved: {StatusRejected, StatusCancelled},
	StatusRejected: {StatusApproved},
}

func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
