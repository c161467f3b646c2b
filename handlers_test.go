package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func testRouter(t *testing.T, store Store, clock Clock) *chi.Mux {
	t.Helper()
	log := zap.NewNop()
	accounts := NewAccountManager(store, NoopPublisher{}, clock, log)
	mux := chi.NewRouter()
	RegisterRoutes(mux, NewHandler(accounts, log))
	return mux
}

func doJSON(t *testing.T, mux *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func signupBody() map[string]any {
	return map[string]any{
		"email":          "test@example.com",
		"password":       "hunter22",
		"monthly_income": 30000.0,
		"fixed_expenses": 10000.0,
		"savings_goal":   5000.0,
	}
}

func TestSignupLoginFlow(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	w := doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}
	var session sessionResponse
	decodeBody(t, w, &session)
	if session.Token == "" || session.User.Email != "test@example.com" {
		t.Fatalf("session = %+v", session)
	}

	// Same email again conflicts.
	w = doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody())
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", w.Code)
	}

	// Wrong password is a 401.
	w = doJSON(t, mux, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "test@example.com", "password": "nope",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", w.Code)
	}

	w = doJSON(t, mux, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "test@example.com", "password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	if w := doJSON(t, mux, http.MethodGet, "/api/summary", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}
	if w := doJSON(t, mux, http.MethodGet, "/api/summary", "bogus-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", w.Code)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	var session sessionResponse
	decodeBody(t, doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody()), &session)
	token := session.Token

	// Non-positive amounts are rejected.
	w := doJSON(t, mux, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 0, "category": "food",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero amount status = %d, want 422", w.Code)
	}

	w = doJSON(t, mux, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 150.0, "category": "food", "description": "lunch",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add expense status = %d, body %s", w.Code, w.Body.String())
	}
	var expense Expense
	decodeBody(t, w, &expense)
	if expense.Date != "2026-04-15" || expense.Category != "food" {
		t.Fatalf("expense = %+v", expense)
	}

	var today []Expense
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/expenses/today", token, nil), &today)
	if len(today) != 1 || today[0].ID != expense.ID {
		t.Fatalf("today's expenses = %+v", today)
	}

	var summary Summary
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/summary", token, nil), &summary)
	if summary.DailyBudget != 500 || summary.TodaySpent != 150 || summary.Remaining != 350 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Streak != 1 {
		t.Fatalf("streak = %d, want 1 on signup day", summary.Streak)
	}

	// Delete is idempotent: both calls return 204.
	if w := doJSON(t, mux, http.MethodDelete, "/api/expenses/"+expense.ID, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w := doJSON(t, mux, http.MethodDelete, "/api/expenses/"+expense.ID, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status = %d, want 204", w.Code)
	}

	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/summary", token, nil), &summary)
	if summary.TodaySpent != 0 {
		t.Fatalf("today spent after delete = %v, want 0", summary.TodaySpent)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	var session sessionResponse
	decodeBody(t, doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody()), &session)

	w := doJSON(t, mux, http.MethodPut, "/api/settings", session.Token, map[string]any{
		"monthly_income":            45000.0,
		"fixed_expenses":            12000.0,
		"emergency_medical_savings": 3000.0,
		"savings_goal":              6000.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("settings status = %d, body %s", w.Code, w.Body.String())
	}
	var user User
	decodeBody(t, w, &user)
	if user.MonthlyIncome != 45000 || user.EmergencyMedicalSavings != 3000 {
		t.Fatalf("updated user = %+v", user)
	}

	// (45000 - 12000 - 3000 - 6000) / 30 = 800
	var summary Summary
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/summary", session.Token, nil), &summary)
	if summary.DailyBudget != 800 {
		t.Fatalf("daily budget after update = %v, want 800", summary.DailyBudget)
	}
}

func TestPlannerAndInsightEndpoints(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	var session sessionResponse
	decodeBody(t, doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody()), &session)
	token := session.Token

	doJSON(t, mux, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 100.0, "category": "coffee",
	})

	w := doJSON(t, mux, http.MethodPost, "/api/planner/check", token, map[string]any{
		"name": "headphones", "cost": 250.0, "category": "shopping", "need": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("planner status = %d", w.Code)
	}
	var verdict PlannerVerdict
	decodeBody(t, w, &verdict)
	if !verdict.Fits || verdict.Remaining != 400 {
		t.Fatalf("verdict = %+v", verdict)
	}

	var series []WeekdaySpend
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/insights/weekly", token, nil), &series)
	if len(series) != 7 || series[6].Spent != 100 {
		t.Fatalf("weekly series = %+v", series)
	}

	var insight CategoryInsight
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/insights/categories", token, nil), &insight)
	if insight.TopCategory != "coffee" {
		t.Fatalf("insight = %+v", insight)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	var session sessionResponse
	decodeBody(t, doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody()), &session)

	if w := doJSON(t, mux, http.MethodPost, "/api/auth/logout", session.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", w.Code)
	}
	if w := doJSON(t, mux, http.MethodGet, "/api/summary", session.Token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout status = %d, want 401", w.Code)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	mux := testRouter(t, newMemoryStore(), fixedClock{now: aprilNoon(t, 15)})

	var session sessionResponse
	decodeBody(t, doJSON(t, mux, http.MethodPost, "/auth/signup", "", signupBody()), &session)

	var records []DayRecord
	decodeBody(t, doJSON(t, mux, http.MethodGet, "/api/records", session.Token, nil), &records)
	if len(records) != 1 || records[0].Date != "2026-04-15" || !records[0].Saved {
		t.Fatalf("records = %+v", records)
	}
}
