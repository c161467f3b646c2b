package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler struct to encapsulate HTTP handling logic.
type Handler struct {
	accounts *AccountManager
	log      *zap.Logger
}

func NewHandler(accounts *AccountManager, log *zap.Logger) *Handler {
	return &Handler{accounts: accounts, log: log}
}

func RegisterRoutes(mux *chi.Mux, h *Handler) {
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)

	mux.Post("/auth/signup", h.Signup)
	mux.Post("/auth/login", h.Login)

	mux.Route("/api", func(api chi.Router) {
		api.Use(h.withAccount)
		api.Post("/auth/logout", h.Logout)
		api.Get("/summary", h.Summary)
		api.Get("/records", h.Records)
		api.Get("/expenses/today", h.TodayExpenses)
		api.Post("/expenses", h.AddExpense)
		api.Delete("/expenses/{id}", h.DeleteExpense)
		api.Put("/settings", h.UpdateSettings)
		api.Post("/planner/check", h.PlannerCheck)
		api.Get("/insights/weekly", h.WeeklyInsight)
		api.Get("/insights/categories", h.CategoryInsight)
	})
}

type ctxKey int

const accountKey ctxKey = 0

// withAccount resolves the bearer token to an account and stashes it in the
// request context. Missing or unknown tokens get a 401.
func (h *Handler) withAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		acct, err := h.accounts.Resume(r.Context(), token)
		if err != nil {
			h.log.Error("failed to resume session", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to resume session")
			return
		}
		if acct == nil {
			respondError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, acct)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func accountFrom(r *http.Request) *Account {
	acct, _ := r.Context().Value(accountKey).(*Account)
	return acct
}

type sessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var p SignupParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if p.Email == "" || p.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, acct, err := h.accounts.Signup(r.Context(), p)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, User: acct.User()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	token, acct, err := h.accounts.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, User: acct.User()})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), bearerToken(r)); err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var summary Summary
	err := h.accounts.WithLedger(accountFrom(r), func(u User, l *Ledger) {
		summary = buildSummary(u, l, h.accounts.Clock())
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	var records []DayRecord
	err := h.accounts.WithLedger(accountFrom(r), func(_ User, l *Ledger) {
		records = append([]DayRecord{}, l.Records()...)
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) TodayExpenses(w http.ResponseWriter, r *http.Request) {
	var expenses []Expense
	err := h.accounts.WithLedger(accountFrom(r), func(_ User, l *Ledger) {
		expenses = append([]Expense{}, l.ExpensesOn(h.accounts.Clock().Today())...)
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	expense, err := h.accounts.AddExpense(r.Context(), accountFrom(r), payload.Amount, payload.Category, payload.Description)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.accounts.DeleteExpense(r.Context(), accountFrom(r), id); err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MonthlyIncome           float64 `json:"monthly_income"`
		FixedExpenses           float64 `json:"fixed_expenses"`
		EmergencyMedicalSavings float64 `json:"emergency_medical_savings"`
		SavingsGoal             float64 `json:"savings_goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := h.accounts.UpdateBudgetSettings(r.Context(), accountFrom(r),
		payload.MonthlyIncome, payload.FixedExpenses,
		payload.EmergencyMedicalSavings, payload.SavingsGoal)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) PlannerCheck(w http.ResponseWriter, r *http.Request) {
	var req PlannerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Cost <= 0 {
		respondError(w, http.StatusUnprocessableEntity, ErrInvalidAmount.Error())
		return
	}

	var verdict PlannerVerdict
	err := h.accounts.WithLedger(accountFrom(r), func(u User, l *Ledger) {
		verdict = plannerCheck(u, l, h.accounts.Clock(), req)
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

func (h *Handler) WeeklyInsight(w http.ResponseWriter, r *http.Request) {
	var series []WeekdaySpend
	err := h.accounts.WithLedger(accountFrom(r), func(_ User, l *Ledger) {
		series = weeklySeries(l, h.accounts.Clock())
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

func (h *Handler) CategoryInsight(w http.ResponseWriter, r *http.Request) {
	var insight CategoryInsight
	err := h.accounts.WithLedger(accountFrom(r), func(_ User, l *Ledger) {
		insight = categoryInsight(l, h.accounts.Clock())
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

// respondDomainError maps the domain's sentinel errors to HTTP statuses.
// Anything else is a 500 with the detail kept out of the response.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateAccount):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
