package orders

import "strings"

type Status string

const (
	StatusPending    Status = "Pending"
	StatusPreparing  Status = "Preparing"
	StatusReady      Status = "Ready"
	StatusDispatched Status = "Dispatched"
	StatusCompleted  Status = "Completed"
	StatusRejected   Status = "Rejected"
	StatusCancelled  Status = "Cancelled"
	StatusUnknown    Status = "Unknown"
)

// Progression is the canonical forward path. Rejected and Cancelled are side
// exits reachable from any non-terminal state, never part of the path itself.
var Progression = []Status{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusDispatched,
	StatusCompleted,
}

// Canonical normalizes a raw status string to its display form: first letter
// upper, rest lower. Every comparison and grouping site goes through here so
// "pending", "Pending" and "PENDING" land in the same group.
func Canonical(raw string) Status {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StatusUnknown
	}
	return Status(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
}

func (s Status) Is(other Status) bool {
	return Canonical(string(s)) == Canonical(string(other))
}

// AllowedNext returns the statuses an operator may select from current:
// everything strictly after it in the progression, with Cancelled and
// Completed always available, and current itself leading as the no-op choice.
// A status outside the progression opens up the whole path.
func AllowedNext(current Status) []Status {
	cur := Canonical(string(current))

	idx := -1
	for i, s := range Progression {
		if s == cur {
			idx = i
			break
		}
	}

	next := make([]Status, 0, len(Progression)+2)
	next = append(next, Progression[idx+1:]...)

	if !contains(next, StatusCancelled) {
		next = append(next, StatusCancelled)
	}
	if !contains(next, StatusCompleted) {
		next = append(next, StatusCompleted)
	}

	out := make([]Status, 0, len(next)+1)
	out = append(out, cur)
	for _, s := range next {
		if s != cur {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []Status, s Status) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
