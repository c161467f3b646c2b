package main

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Ledger holds one user's day records, ordered by date ascending. It is
// pure in-memory state; the account manager persists it through the store
// after every mutation.
type Ledger struct {
	records []DayRecord
}

func NewLedger(records []DayRecord) *Ledger {
	l := &Ledger{records: records}
	l.sortByDate()
	return l
}

func (l *Ledger) Records() []DayRecord { return l.records }

func (l *Ledger) find(date string) *DayRecord {
	for i := range l.records {
		if l.records[i].Date == date {
			return &l.records[i]
		}
	}
	return nil
}

// EnsureDay creates an empty record for date if none exists. A fresh day
// starts with zero spend and therefore counts as saved. Idempotent.
func (l *Ledger) EnsureDay(date string) bool {
	if l.find(date) != nil {
		return false
	}
	l.records = append(l.records, DayRecord{
		Date:     date,
		Expenses: []Expense{},
		Saved:    true,
	})
	l.sortByDate()
	return true
}

// AddExpense appends a new expense to the day containing now, creating the
// day record if needed, and recomputes that day's derived fields.
func (l *Ledger) AddExpense(u User, amount float64, category, description string, now time.Time) (Expense, error) {
	if amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}

	e := Expense{
		ID:          uuid.NewString(),
		Amount:      amount,
		Category:    NormalizeCategory(category),
		Description: description,
		Date:        now.Format(dateLayout),
		Timestamp:   now.UnixMilli(),
	}

	l.EnsureDay(e.Date)
	day := l.find(e.Date)
	day.Expenses = append(day.Expenses, e)
	recomputeDay(day, u)
	return e, nil
}

// DeleteExpense removes the expense with the given id from whichever day
// holds it. Unknown ids are a no-op; deletion is idempotent.
func (l *Ledger) DeleteExpense(u User, id string) bool {
	for i := range l.records {
		day := &l.records[i]
		for j, e := range day.Expenses {
			if e.ID == id {
				day.Expenses = append(day.Expenses[:j], day.Expenses[j+1:]...)
				recomputeDay(day, u)
				return true
			}
		}
	}
	return false
}

// recomputeDay restores the derived-field invariant: TotalSpent is the sum
// of the day's expenses and Saved reflects it against that day's budget.
func recomputeDay(day *DayRecord, u User) {
	total := 0.0
	for _, e := range day.Expenses {
		total += e.Amount
	}
	day.TotalSpent = total
	day.Saved = total <= dailyBudgetOn(u, day.Date)
}

// TodayRecord returns the record for date, or nil.
func (l *Ledger) TodayRecord(date string) *DayRecord { return l.find(date) }

func (l *Ledger) TotalSpentOn(date string) float64 {
	if day := l.find(date); day != nil {
		return day.TotalSpent
	}
	return 0
}

func (l *Ledger) ExpensesOn(date string) []Expense {
	if day := l.find(date); day != nil {
		return day.Expenses
	}
	return []Expense{}
}

func (l *Ledger) sortByDate() {
	// YYYY-MM-DD sorts correctly as a string.
	sort.Slice(l.records, func(i, j int) bool {
		return l.records[i].Date < l.records[j].Date
	})
}
