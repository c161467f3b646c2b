package main

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Recoverable, user-facing conditions. Handlers map these to HTTP statuses.
var (
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidAmount      = errors.New("expense amount must be positive")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

type User struct {
	Email                   string    `json:"email"`
	MonthlyIncome           float64   `json:"monthly_income"`
	FixedExpenses           float64   `json:"fixed_expenses"`
	EmergencyMedicalSavings float64   `json:"emergency_medical_savings"`
	SavingsGoal             float64   `json:"savings_goal"`
	CreatedAt               time.Time `json:"created_at"`
}

// Expense is a single logged spend event. Immutable once created, except
// for deletion. Date is the calendar day it belongs to; Timestamp is the
// creation instant, kept for ordering and audit only.
type Expense struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Timestamp   int64   `json:"timestamp"`
}

// DayRecord is the ledger entry for one calendar day. TotalSpent and Saved
// are derived from Expenses and recomputed after every mutation.
type DayRecord struct {
	Date       string    `json:"date"`
	Expenses   []Expense `json:"expenses"`
	TotalSpent float64   `json:"total_spent"`
	Saved      bool      `json:"saved"`
}

const CategoryOther = "other"

// Categories is the closed set of expense categories. Anything outside it
// falls back to "other".
var Categories = []string{
	"food",
	"transport",
	"shopping",
	"coffee",
	"entertainment",
	"utilities",
	"health",
	CategoryOther,
}

func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

// Clock is injected everywhere the current day matters, so tests can pin it.
type Clock interface {
	Now() time.Time
	Today() string // YYYY-MM-DD in the local zone
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Today() string { return time.Now().Format(dateLayout) }
