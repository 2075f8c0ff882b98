package orders

import (
	"sort"
	"time"
)

type DailySummary struct {
	Date       string  `json:"date"` // YYYY-MM-DD, UTC
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"` // pounds
}

// SummarizeByDay groups orders by UTC calendar day, newest day first.
func SummarizeByDay(list []Order) []DailySummary {
	grouped := map[string]*DailySummary{}
	for _, o := range list {
		date := o.CreatedAt.UTC().Format("2006-01-02")
		s, ok := grouped[date]
		if !ok {
			s = &DailySummary{Date: date}
			grouped[date] = s
		}
		s.OrderCount++
		s.Revenue += o.Amount()
	}

	out := make([]DailySummary, 0, len(grouped))
	for _, s := range grouped {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// History returns orders older than the live window, newest first, optionally
// limited to a trailing timeframe (0 means no limit).
func History(all []Order, now time.Time, window, timeframe time.Duration) []Order {
	var out []Order
	for _, o := range all {
		age := o.Age(now)
		if age <= window {
			continue
		}
		if timeframe > 0 && age > timeframe {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
