package matching

import "time"

// DateProximity scores two calendar dates by absolute day delta, computed
// on UTC calendar days so time-of-day and timezone noise on either side
// can't shift the tier (spec §4.C).
func DateProximity(a, b time.Time) int {
	d := dayDelta(a, b)
	switch {
	case d <= 3:
		return 15
	case d <= 7:
		return 10
	case d <= 15:
		return 5
	case d > 30:
		return -10
	default:
		return 0
	}
}

func dayDelta(a, b time.Time) int {
	da := toUTCDay(a)
	db := toUTCDay(b)
	delta := da.Sub(db).Hours() / 24
	if delta < 0 {
		delta = -delta
	}
	return int(delta + 0.5)
}

func toUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
