package main

import "time"

// streakScanLimit caps the backward walk; nobody needs a streak display
// beyond a year.
const streakScanLimit = 365

// calculateStreak counts consecutive tracked days ending at today. A day
// counts as long as a DayRecord exists for it, whether or not the day was
// actually saved. If today has no record yet the day is still in progress,
// so the walk starts from yesterday instead of treating today as a gap.
func calculateStreak(records []DayRecord, today string) int {
	if len(records) == 0 {
		return 0
	}

	tracked := make(map[string]bool, len(records))
	for _, r := range records {
		tracked[r.Date] = true
	}

	anchor, err := time.Parse(dateLayout, today)
	if err != nil {
		return 0
	}
	hasToday := tracked[today]
	if !hasToday {
		anchor = anchor.AddDate(0, 0, -1)
	}

	streak := 0
	for i := 0; i < streakScanLimit; i++ {
		if !tracked[anchor.AddDate(0, 0, -i).Format(dateLayout)] {
			break
		}
		streak++
	}

	// Anything logged today guarantees a streak of at least one, even with
	// a gap right behind it.
	if hasToday && streak < 1 {
		streak = 1
	}
	return streak
}

// streakBadge maps a streak length to the label shown next to it.
func streakBadge(streak int) string {
	switch {
	case streak >= 30:
		return "Legend"
	case streak >= 14:
		return "Committed"
	case streak >= 7:
		return "On Fire"
	case streak >= 3:
		return "Getting Started"
	default:
		return "Beginner"
	}
}
