package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunRecurring_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/pipeline/recurring/run" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["date"] != "2025-03-31" {
			t.Errorf("expected date 2025-03-31, got %q", body["date"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"today":                "2025-03-31T00:00:00Z",
			"rules_due":            2,
			"rules_processed":      2,
			"transactions_created": 5,
			"rules_retired":        1,
			"conflicts":            0,
			"failures": []map[string]any{
				{"rule_id": "r-9", "wallet_id": "w-1", "period": "2025-02-28T00:00:00Z", "error": "insert failed"},
			},
			"duration_ns": 1500,
		})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL+"/", "test-key", server.Client())
	result, err := c.RunRecurring(context.Background(), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TransactionsCreated != 5 || result.RulesRetired != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].RuleID != "r-9" {
		t.Errorf("unexpected failures %+v", result.Failures)
	}
	if result.Failures[0].Period.Format("2006-01-02") != "2025-02-28" {
		t.Errorf("unexpected failure period %v", result.Failures[0].Period)
	}
}

func TestRunRecurring_ZeroDateOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["date"]; ok {
			t.Errorf("date should be omitted, got %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"transactions_created": 0})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "k", server.Client())
	if _, err := c.RunRecurring(context.Background(), time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRecurring_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"},
		})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "bad-key", server.Client())
	_, err := c.RunRecurring(context.Background(), time.Time{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "INVALID_API_KEY" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestRunRecurring_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "k", server.Client())
	_, err := c.RunRecurring(context.Background(), time.Time{})
	if err == nil || !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestRunRecurring_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "k", server.Client())
	_, err := c.RunRecurring(context.Background(), time.Time{})
	if err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestRecomputeBudgets_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pipeline/budgets/recompute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			WalletID string `json:"wallet_id"`
			Month    int    `json:"month"`
			Year     int    `json:"year"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet_id": body.WalletID, "month": body.Month, "year": body.Year,
			"budgets_checked": 3, "budgets_fixed": 1,
		})
	}))
	defer server.Close()

	c := NewPipelineClient(server.URL, "k", server.Client())
	result, err := c.RecomputeBudgets(context.Background(), "w-1", 2, 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WalletID != "w-1" || result.Month != 2 || result.BudgetsChecked != 3 || result.BudgetsFixed != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestRunRecurring_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewPipelineClient(server.URL, "k", server.Client())
	if _, err := c.RunRecurring(ctx, time.Time{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
