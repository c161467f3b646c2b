package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence contract the account manager works against:
// account records, per-user ledgers and session tokens.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (User, bool, error)
	CreateUser(ctx context.Context, u User, passwordHash string) error
	UpdateUser(ctx context.Context, u User) error
	VerifyCredentials(ctx context.Context, email, password string) (bool, error)

	LoadLedger(ctx context.Context, email string) ([]DayRecord, error)
	SaveLedger(ctx context.Context, email string, records []DayRecord) error

	CreateSession(ctx context.Context, token, email string) error
	FindSession(ctx context.Context, token string) (string, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// a pgx pool allows the app to reuse and efficiently manage a set of
// connections to the database, rather than opening and closing a new
// connection for every query.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &PostgresStore{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			monthly_income DOUBLE PRECISION NOT NULL DEFAULT 0,
			fixed_expenses DOUBLE PRECISION NOT NULL DEFAULT 0,
			emergency_medical_savings DOUBLE PRECISION NOT NULL DEFAULT 0,
			savings_goal DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS day_records (
			user_email TEXT NOT NULL REFERENCES users(email),
			date TEXT NOT NULL,
			total_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
			saved BOOLEAN NOT NULL DEFAULT TRUE,
			expenses JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (user_email, date)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_email TEXT NOT NULL REFERENCES users(email),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (User, bool, error) {
	query := `
        SELECT email, monthly_income, fixed_expenses, emergency_medical_savings, savings_goal, created_at
        FROM users
        WHERE email = $1;
    `

	var u User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.Email, &u.MonthlyIncome, &u.FixedExpenses,
		&u.EmergencyMedicalSavings, &u.SavingsGoal, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	return u, true, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User, passwordHash string) error {
	query := `
        INSERT INTO users (email, password_hash, monthly_income, fixed_expenses, emergency_medical_savings, savings_goal, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `

	_, err := s.pool.Exec(ctx, query,
		u.Email, passwordHash, u.MonthlyIncome, u.FixedExpenses,
		u.EmergencyMedicalSavings, u.SavingsGoal, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u User) error {
	query := `
        UPDATE users
        SET monthly_income = $1, fixed_expenses = $2, emergency_medical_savings = $3, savings_goal = $4
        WHERE email = $5;
    `

	cmdTag, err := s.pool.Exec(ctx, query,
		u.MonthlyIncome, u.FixedExpenses, u.EmergencyMedicalSavings, u.SavingsGoal, u.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("no user found with email %s", u.Email)
	}
	return nil
}

func (s *PostgresStore) VerifyCredentials(ctx context.Context, email, password string) (bool, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE email = $1`, email).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load credentials for %s: %w", email, err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// LoadLedger returns the user's day records ordered by date. A corrupt
// expenses payload degrades to an empty ledger rather than blocking login.
func (s *PostgresStore) LoadLedger(ctx context.Context, email string) ([]DayRecord, error) {
	query := `
        SELECT date, total_spent, saved, expenses
        FROM day_records
        WHERE user_email = $1
        ORDER BY date;
    `

	rows, err := s.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for %s: %w", email, err)
	}
	defer rows.Close()

	records := []DayRecord{}
	for rows.Next() {
		var r DayRecord
		var raw []byte
		if err := rows.Scan(&r.Date, &r.TotalSpent, &r.Saved, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan day record: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Expenses); err != nil {
			s.log.Warn("corrupt ledger payload, starting fresh",
				zap.String("email", email), zap.String("date", r.Date), zap.Error(err))
			return []DayRecord{}, nil
		}
		records = append(records, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// SaveLedger is an idempotent full overwrite of the user's day records,
// applied in one transaction so a crash never leaves half a ledger.
func (s *PostgresStore) SaveLedger(ctx context.Context, email string, records []DayRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ledger save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM day_records WHERE user_email = $1`, email); err != nil {
		return fmt.Errorf("failed to clear ledger for %s: %w", email, err)
	}

	query := `
        INSERT INTO day_records (user_email, date, total_spent, saved, expenses)
        VALUES ($1, $2, $3, $4, $5);
    `
	for _, r := range records {
		expenses, err := json.Marshal(r.Expenses)
		if err != nil {
			return fmt.Errorf("failed to encode expenses for %s: %w", r.Date, err)
		}
		if _, err := tx.Exec(ctx, query, email, r.Date, r.TotalSpent, r.Saved, expenses); err != nil {
			return fmt.Errorf("failed to save day record %s: %w", r.Date, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateSession(ctx context.Context, token, email string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_email, created_at) VALUES ($1, $2, $3)`,
		token, email, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSession(ctx context.Context, token string) (string, bool, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT user_email FROM sessions WHERE token = $1`, token).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up session: %w", err)
	}
	return email, true, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
