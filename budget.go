package main

import (
	"math"
	"time"
)

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// spendableAmount is what remains of the monthly income after fixed
// expenses, the emergency medical carve-out and the savings goal. It is
// deliberately not clamped: a negative value is a meaningful signal of
// over-committed finances.
func spendableAmount(u User) float64 {
	return u.MonthlyIncome - u.FixedExpenses - u.EmergencyMedicalSavings - u.SavingsGoal
}

// daysInMonth returns the number of calendar days in the month containing
// ref. Day 0 of the following month normalizes to the last day of this one,
// so leap years come out right without a lookup table.
func daysInMonth(ref time.Time) int {
	return time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
}

func dailyBudget(u User, ref time.Time) float64 {
	return round2(spendableAmount(u) / float64(daysInMonth(ref)))
}

// dailyBudgetOn computes the budget for a YYYY-MM-DD ledger date with the
// user's current settings. Used when recomputing a day's saved flag after
// a mutation; past settings are not reconstructed.
func dailyBudgetOn(u User, date string) float64 {
	ref, err := time.Parse(dateLayout, date)
	if err != nil {
		ref = time.Now()
	}
	return dailyBudget(u, ref)
}
