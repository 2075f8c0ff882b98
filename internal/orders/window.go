package orders

import "time"

// DefaultLiveWindow is how long an order counts as live after creation.
const DefaultLiveWindow = 4 * time.Hour

// IsLive reports whether the order's age is within the rolling window. The
// boundary is inclusive: an order exactly window old is still live.
func IsLive(o Order, now time.Time, window time.Duration) bool {
	return o.Age(now) <= window
}

// PartitionLive splits a full fetch into the live working set and the rest,
// preserving input order.
func PartitionLive(all []Order, now time.Time, window time.Duration) (live, archived []Order) {
	for _, o := range all {
		if IsLive(o, now, window) {
			live = append(live, o)
		} else {
			archived = append(archived, o)
		}
	}
	return live, archived
}

// CountByStatus groups orders under their canonical status.
func CountByStatus(list []Order) map[Status]int {
	counts := make(map[Status]int, len(Progression))
	for _, o := range list {
		counts[Canonical(string(o.Status))]++
	}
	return counts
}

// FilterByStatus returns the orders whose status matches, case-insensitively.
func FilterByStatus(list []Order, status Status) []Order {
	var out []Order
	for _, o := range list {
		if o.Status.Is(status) {
			out = append(out, o)
		}
	}
	return out
}
