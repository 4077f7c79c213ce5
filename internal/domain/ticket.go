package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateNew        TicketState = "new"
	TicketStateWaiting    TicketState = "waiting"
	TicketStateInProgress TicketState = "in_progress"
	TicketStateResolved   TicketState = "resolved"
	TicketStateClosed     TicketState = "closed"
	TicketStateCancelled  TicketState = "cancelled"
)

// TicketPriority enumerates urgency. Informational only; it never gates
// transitions.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the aggregate for support requests. OwnerID is non-nil exactly
// while State is in_progress; leaving that state releases ownership so the
// take path can claim the ticket again.
type Ticket struct {
	ID           string
	ExternalKey  string
	CreatorID    string
	OwnerID      *string
	Subject      string
	Description  string
	Category     string
	Branch       string
	State        TicketState
	Priority     TicketPriority
	CreatedAt    time.Time
	UpdatedAt    time.Time
	WaitingSince *time.Time
	ResolvedAt   *time.Time
	ClosedAt     *time.Time
}

// allowedTransitions is the directed edge set of the lifecycle. closed and
// cancelled are terminal; closed is only ever written by the archival path.
var allowedTransitions = map[TicketState][]TicketState{
	TicketStateNew:        {TicketStateInProgress, TicketStateCancelled},
	TicketStateWaiting:    {TicketStateInProgress, TicketStateResolved, TicketStateCancelled},
	TicketStateInProgress: {TicketStateResolved, TicketStateWaiting, TicketStateCancelled},
	TicketStateResolved:   {TicketStateWaiting},
	TicketStateClosed:     {},
	TicketStateCancelled:  {},
}

// CanTransition reports whether the edge current -> next exists.
func CanTransition(current, next TicketState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidState reports whether s is a known lifecycle state.
func ValidState(s TicketState) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Takeable reports whether an ownerless ticket in this state may be claimed.
func Takeable(s TicketState) bool {
	return s == TicketStateNew || s == TicketStateWaiting
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ActiveWork is the aggregate returned by the active-work guard.
type ActiveWork struct {
	HasActive bool
	Count     int
}
