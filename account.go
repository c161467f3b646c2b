package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Account is one authenticated session: the user plus their ledger. All
// mutations on it are serialized through mu so a concurrent add and delete
// can never read a stale expense list.
type Account struct {
	mu     sync.Mutex
	user   User
	ledger *Ledger
}

func (a *Account) User() User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// AccountManager coordinates signup, login and ledger mutations against the
// store. Sessions live in the store so they survive restarts; the in-memory
// registry is just a cache keyed by token.
type AccountManager struct {
	store     Store
	publisher NotificationPublisher
	clock     Clock
	log       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Account
}

func NewAccountManager(store Store, publisher NotificationPublisher, clock Clock, log *zap.Logger) *AccountManager {
	return &AccountManager{
		store:     store,
		publisher: publisher,
		clock:     clock,
		log:       log,
		sessions:  make(map[string]*Account),
	}
}

type SignupParams struct {
	Email                   string  `json:"email"`
	Password                string  `json:"password"`
	MonthlyIncome           float64 `json:"monthly_income"`
	FixedExpenses           float64 `json:"fixed_expenses"`
	EmergencyMedicalSavings float64 `json:"emergency_medical_savings"`
	SavingsGoal             float64 `json:"savings_goal"`
}

// Signup creates the account, seeds the ledger with today's empty record
// and opens a session. Fails with ErrDuplicateAccount if the email is taken
// and leaves the existing account untouched.
func (m *AccountManager) Signup(ctx context.Context, p SignupParams) (string, *Account, error) {
	if _, exists, err := m.store.FindUserByEmail(ctx, p.Email); err != nil {
		return "", nil, err
	} else if exists {
		return "", nil, ErrDuplicateAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		Email:                   p.Email,
		MonthlyIncome:           p.MonthlyIncome,
		FixedExpenses:           p.FixedExpenses,
		EmergencyMedicalSavings: p.EmergencyMedicalSavings,
		SavingsGoal:             p.SavingsGoal,
		CreatedAt:               m.clock.Now(),
	}
	if err := m.store.CreateUser(ctx, user, string(hash)); err != nil {
		return "", nil, err
	}

	ledger := NewLedger(nil)
	ledger.EnsureDay(m.clock.Today())
	if err := m.store.SaveLedger(ctx, user.Email, ledger.Records()); err != nil {
		return "", nil, err
	}

	token, acct, err := m.openSession(ctx, user, ledger)
	if err != nil {
		return "", nil, err
	}
	m.log.Info("account created", zap.String("email", user.Email))
	return token, acct, nil
}

// Login verifies credentials, loads the persisted ledger (empty if none or
// unreadable) and makes sure today's record exists before handing the
// session back.
func (m *AccountManager) Login(ctx context.Context, email, password string) (string, *Account, error) {
	ok, err := m.store.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	user, _, err := m.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	ledger, err := m.hydrateLedger(ctx, user)
	if err != nil {
		return "", nil, err
	}

	token, acct, err := m.openSession(ctx, user, ledger)
	if err != nil {
		return "", nil, err
	}
	m.log.Info("login", zap.String("email", email))
	return token, acct, nil
}

// Resume resolves a session token to its account, rebuilding the in-memory
// state from the store after a restart. Returns nil when the token is
// unknown.
func (m *AccountManager) Resume(ctx context.Context, token string) (*Account, error) {
	m.mu.RLock()
	acct := m.sessions[token]
	m.mu.RUnlock()
	if acct != nil {
		return acct, nil
	}

	email, found, err := m.store.FindSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	user, found, err := m.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	ledger, err := m.hydrateLedger(ctx, user)
	if err != nil {
		return nil, err
	}

	acct = &Account{user: user, ledger: ledger}
	m.mu.Lock()
	// Another request may have resumed the same token in the meantime.
	if cached, ok := m.sessions[token]; ok {
		acct = cached
	} else {
		m.sessions[token] = acct
	}
	m.mu.Unlock()
	return acct, nil
}

// Logout drops the in-memory session and its persisted token. The account
// and ledger stay in the store.
func (m *AccountManager) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return m.store.DeleteSession(ctx, token)
}

// AddExpense logs a spend against today, persists the updated ledger and
// fires budget notifications. The ledger write is durable before this
// returns.
func (m *AccountManager) AddExpense(ctx context.Context, acct *Account, amount float64, category, description string) (Expense, error) {
	if acct == nil {
		return Expense{}, ErrNotAuthenticated
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	e, err := acct.ledger.AddExpense(acct.user, amount, category, description, m.clock.Now())
	if err != nil {
		return Expense{}, err
	}
	if err := m.store.SaveLedger(ctx, acct.user.Email, acct.ledger.Records()); err != nil {
		return Expense{}, err
	}

	m.notifyBudgetStanding(acct)
	return e, nil
}

// DeleteExpense removes an expense by id anywhere in the ledger. Unknown
// ids are a successful no-op.
func (m *AccountManager) DeleteExpense(ctx context.Context, acct *Account, id string) error {
	if acct == nil {
		return ErrNotAuthenticated
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	if !acct.ledger.DeleteExpense(acct.user, id) {
		return nil
	}
	return m.store.SaveLedger(ctx, acct.user.Email, acct.ledger.Records())
}

// UpdateBudgetSettings overwrites the four budget fields. Past days keep
// the saved flags they were computed with; only future computations see the
// new budget. A nil account is a silent no-op.
func (m *AccountManager) UpdateBudgetSettings(ctx context.Context, acct *Account, income, fixed, emergency, goal float64) (User, error) {
	if acct == nil {
		return User{}, nil
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	acct.user.MonthlyIncome = income
	acct.user.FixedExpenses = fixed
	acct.user.EmergencyMedicalSavings = emergency
	acct.user.SavingsGoal = goal
	if err := m.store.UpdateUser(ctx, acct.user); err != nil {
		return User{}, err
	}
	return acct.user, nil
}

// WithLedger runs fn with the account's user and ledger under the account
// lock. Read-only accessors for the handlers.
func (m *AccountManager) WithLedger(acct *Account, fn func(User, *Ledger)) error {
	if acct == nil {
		return ErrNotAuthenticated
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	fn(acct.user, acct.ledger)
	return nil
}

func (m *AccountManager) Clock() Clock { return m.clock }

func (m *AccountManager) openSession(ctx context.Context, user User, ledger *Ledger) (string, *Account, error) {
	token := uuid.NewString()
	if err := m.store.CreateSession(ctx, token, user.Email); err != nil {
		return "", nil, err
	}

	acct := &Account{user: user, ledger: ledger}
	m.mu.Lock()
	m.sessions[token] = acct
	m.mu.Unlock()

	m.maybeAnnounceStreak(acct)
	return token, acct, nil
}

// hydrateLedger loads the persisted records and guarantees a record for
// today, persisting the new day immediately so a streak check always finds
// it.
func (m *AccountManager) hydrateLedger(ctx context.Context, user User) (*Ledger, error) {
	records, err := m.store.LoadLedger(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	ledger := NewLedger(records)
	if ledger.EnsureDay(m.clock.Today()) {
		if err := m.store.SaveLedger(ctx, user.Email, ledger.Records()); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// notifyBudgetStanding mirrors the day's standing to the notification
// queue: one message when today goes over budget, one when it crosses 80%
// of it. Publish failures are logged, never surfaced to the caller.
func (m *AccountManager) notifyBudgetStanding(acct *Account) {
	today := m.clock.Today()
	day := acct.ledger.TodayRecord(today)
	if day == nil {
		return
	}
	budget := dailyBudget(acct.user, m.clock.Now())

	var message string
	switch {
	case day.TotalSpent > budget:
		message = "You have gone over today's budget."
	case budget > 0 && day.TotalSpent > 0.8*budget:
		message = "You are nearing today's budget."
	default:
		return
	}

	n := Notification{
		Email:       acct.user.Email,
		Kind:        NotificationOverBudget,
		Message:     message,
		TotalSpent:  day.TotalSpent,
		DailyBudget: budget,
	}
	if err := m.publisher.Publish(n); err != nil {
		m.log.Warn("failed to publish budget notification", zap.Error(err))
	}
}

// maybeAnnounceStreak publishes a milestone message when hydration pushes
// the streak onto one of the badge thresholds.
func (m *AccountManager) maybeAnnounceStreak(acct *Account) {
	streak := calculateStreak(acct.ledger.Records(), m.clock.Today())
	switch streak {
	case 3, 7, 14, 30:
	default:
		return
	}

	n := Notification{
		Email:   acct.user.Email,
		Kind:    NotificationStreak,
		Message: fmt.Sprintf("%d-day saving streak: %s!", streak, streakBadge(streak)),
		Streak:  streak,
	}
	if err := m.publisher.Publish(n); err != nil {
		m.log.Warn("failed to publish streak notification", zap.Error(err))
	}
}
