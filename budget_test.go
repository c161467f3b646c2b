package main

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{2.344, 2.34},
		{2.346, 2.35},
		{0.125, 0.13},   // exact binary half rounds away from zero
		{-0.125, -0.13}, // symmetric for negatives
		{-2.346, -2.35},
		{500, 500},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2024-02-15", 29}, // leap year
		{"2023-02-15", 28},
		{"2024-01-10", 31},
		{"2024-04-01", 30},
		{"2024-12-31", 31}, // month+1 normalizes across the year boundary
		{"2100-02-01", 28}, // century non-leap
	}
	for _, c := range cases {
		if got := daysInMonth(mustDate(t, c.date)); got != c.want {
			t.Errorf("daysInMonth(%s) = %d, want %d", c.date, got, c.want)
		}
	}
}

func TestSpendableAmountNotClamped(t *testing.T) {
	u := User{MonthlyIncome: 1000, FixedExpenses: 2000, SavingsGoal: 500}
	if got := spendableAmount(u); got != -1500 {
		t.Fatalf("spendableAmount = %v, want -1500", got)
	}
}

func TestDailyBudget(t *testing.T) {
	u := User{MonthlyIncome: 30000, FixedExpenses: 10000, SavingsGoal: 5000}

	if got := spendableAmount(u); got != 15000 {
		t.Fatalf("spendableAmount = %v, want 15000", got)
	}

	// 30-day month: 15000 / 30 = 500.00
	april := mustDate(t, "2024-04-15")
	if got := dailyBudget(u, april); got != 500.00 {
		t.Fatalf("dailyBudget(april) = %v, want 500.00", got)
	}

	// 31-day month: 15000 / 31 = 483.87096... -> 483.87
	january := mustDate(t, "2024-01-15")
	if got := dailyBudget(u, january); got != 483.87 {
		t.Fatalf("dailyBudget(january) = %v, want 483.87", got)
	}
}

func TestDailyBudgetDeterministic(t *testing.T) {
	u := User{MonthlyIncome: 47253.19, FixedExpenses: 12000.55, EmergencyMedicalSavings: 1000, SavingsGoal: 7000}
	ref := mustDate(t, "2024-02-20")
	first := dailyBudget(u, ref)
	for i := 0; i < 10; i++ {
		if got := dailyBudget(u, ref); got != first {
			t.Fatalf("dailyBudget not deterministic: %v vs %v", got, first)
		}
	}
}

func TestDailyBudgetIncludesEmergencyCarveOut(t *testing.T) {
	u := User{MonthlyIncome: 30000, FixedExpenses: 10000, EmergencyMedicalSavings: 2000, SavingsGoal: 5000}
	april := mustDate(t, "2024-04-15")
	// (30000 - 10000 - 2000 - 5000) / 30 = 433.333... -> 433.33
	if got := dailyBudget(u, april); got != 433.33 {
		t.Fatalf("dailyBudget = %v, want 433.33", got)
	}
}

func TestDailyBudgetOnUsesTheDateMonth(t *testing.T) {
	u := User{MonthlyIncome: 30000, FixedExpenses: 10000, SavingsGoal: 5000}
	if got := dailyBudgetOn(u, "2024-04-02"); got != 500.00 {
		t.Fatalf("dailyBudgetOn(2024-04-02) = %v, want 500.00", got)
	}
	if got := dailyBudgetOn(u, "2024-01-02"); got != 483.87 {
		t.Fatalf("dailyBudgetOn(2024-01-02) = %v, want 483.87", got)
	}
}
