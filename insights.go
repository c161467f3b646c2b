package main

import (
	"math"
	"time"
)

// Summary is the dashboard payload: everything the client needs to render
// the tracker, streak and savings progress in one round trip.
type Summary struct {
	DailyBudget     float64 `json:"daily_budget"`
	DaysInMonth     int     `json:"days_in_month"`
	SpendableAmount float64 `json:"spendable_amount"`
	TodaySpent      float64 `json:"today_spent"`
	Remaining       float64 `json:"remaining"`
	Streak          int     `json:"streak"`
	StreakBadge     string  `json:"streak_badge"`
	MonthlySavings  float64 `json:"monthly_savings"`
	GoalProgress    int     `json:"goal_progress"`
	SavingRate      int     `json:"saving_rate"`
	DaysTracked     int     `json:"days_tracked"`
}

func buildSummary(u User, l *Ledger, clock Clock) Summary {
	now := clock.Now()
	today := clock.Today()
	budget := dailyBudget(u, now)
	todaySpent := l.TotalSpentOn(today)
	savings := monthlySavings(u, l.Records(), now)
	streak := calculateStreak(l.Records(), today)

	return Summary{
		DailyBudget:     budget,
		DaysInMonth:     daysInMonth(now),
		SpendableAmount: spendableAmount(u),
		TodaySpent:      todaySpent,
		Remaining:       budget - todaySpent,
		Streak:          streak,
		StreakBadge:     streakBadge(streak),
		MonthlySavings:  savings,
		GoalProgress:    goalProgress(savings, u.SavingsGoal),
		SavingRate:      savingRate(l.Records()),
		DaysTracked:     len(l.Records()),
	}
}

// monthlySavings compares the budget allotted to the tracked days of the
// current month with what was actually spent on them. Negative when the
// month is overspent.
func monthlySavings(u User, records []DayRecord, now time.Time) float64 {
	budget := dailyBudget(u, now)
	totalSpent := 0.0
	daysTracked := 0
	for _, r := range records {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			continue
		}
		if d.Year() == now.Year() && d.Month() == now.Month() {
			totalSpent += r.TotalSpent
			daysTracked++
		}
	}
	return float64(daysTracked)*budget - totalSpent
}

// goalProgress is the percentage of the savings goal reached this month,
// clamped to [0, 100]. A zero goal reports zero rather than dividing.
func goalProgress(savings, goal float64) int {
	if goal <= 0 {
		return 0
	}
	p := int(math.Round(math.Max(savings, 0) / goal * 100))
	if p > 100 {
		p = 100
	}
	return p
}

// savingRate is the share of tracked days that came in under budget.
func savingRate(records []DayRecord) int {
	if len(records) == 0 {
		return 0
	}
	saved := 0
	for _, r := range records {
		if r.Saved {
			saved++
		}
	}
	return int(math.Round(float64(saved) / float64(len(records)) * 100))
}

type WeekdaySpend struct {
	Date  string  `json:"date"`
	Day   string  `json:"day"`
	Spent float64 `json:"spent"`
}

// weeklySeries returns the last seven calendar days ending today, with zero
// spend for untracked days so the chart always has seven bars.
func weeklySeries(l *Ledger, clock Clock) []WeekdaySpend {
	now := clock.Now()
	series := make([]WeekdaySpend, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		date := d.Format(dateLayout)
		series = append(series, WeekdaySpend{
			Date:  date,
			Day:   d.Weekday().String()[:3],
			Spent: l.TotalSpentOn(date),
		})
	}
	return series
}

type CategoryInsight struct {
	Totals           map[string]float64 `json:"totals"`
	TopCategory      string             `json:"top_category,omitempty"`
	TopAmount        float64            `json:"top_amount,omitempty"`
	YearlyProjection float64            `json:"yearly_projection,omitempty"`
}

// categoryInsight aggregates spending per category over the trailing 30
// days and projects what trimming the top category by 20% would save in a
// year.
func categoryInsight(l *Ledger, clock Clock) CategoryInsight {
	cutoff := clock.Now().AddDate(0, 0, -30)
	totals := map[string]float64{}
	for _, r := range l.Records() {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil || d.Before(cutoff) {
			continue
		}
		for _, e := range r.Expenses {
			totals[e.Category] += e.Amount
		}
	}

	insight := CategoryInsight{Totals: totals}
	for cat, amount := range totals {
		if amount > insight.TopAmount || (amount == insight.TopAmount && cat < insight.TopCategory) {
			insight.TopCategory = cat
			insight.TopAmount = amount
		}
	}
	if insight.TopCategory != "" {
		insight.YearlyProjection = math.Round(insight.TopAmount * 0.2 * 12)
	}
	return insight
}

type PlannerRequest struct {
	Name     string  `json:"name"`
	Cost     float64 `json:"cost"`
	Category string  `json:"category"`
	Need     bool    `json:"need"`
}

type PlannerVerdict struct {
	Fits      bool    `json:"fits"`
	Remaining float64 `json:"remaining"`
	Leftover  float64 `json:"leftover,omitempty"`
	Overshoot float64 `json:"overshoot,omitempty"`
	Hint      string  `json:"hint,omitempty"`
}

// plannerCheck answers "should I buy this?" against what is left of today's
// budget.
func plannerCheck(u User, l *Ledger, clock Clock, req PlannerRequest) PlannerVerdict {
	remaining := dailyBudget(u, clock.Now()) - l.TotalSpentOn(clock.Today())
	v := PlannerVerdict{
		Fits:      req.Cost <= remaining,
		Remaining: remaining,
	}
	if v.Fits {
		v.Leftover = remaining - req.Cost
	} else {
		v.Overshoot = req.Cost - remaining
		if !req.Need {
			v.Hint = "Consider saving for this want"
		}
	}
	return v
}
