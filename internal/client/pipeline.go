// Package client provides an HTTP client for the walletwise pipeline API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "X-API-Key"

// RuleFailure is a rule the server could not fully catch up.
type RuleFailure struct {
	RuleID   string    `json:"rule_id"`
	WalletID string    `json:"wallet_id"`
	Period   time.Time `json:"period"`
	Error    string    `json:"error"`
}

// RunResult mirrors the server's materialization summary.
type RunResult struct {
	Today               time.Time     `json:"today"`
	RulesDue            int           `json:"rules_due"`
	RulesProcessed      int           `json:"rules_processed"`
	TransactionsCreated int           `json:"transactions_created"`
	RulesRetired        int           `json:"rules_retired"`
	Conflicts           int           `json:"conflicts"`
	Failures            []RuleFailure `json:"failures"`
	DurationNS          int64         `json:"duration_ns"`
}

// RecomputeResult mirrors the server's budget repair summary.
type RecomputeResult struct {
	WalletID       string `json:"wallet_id"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	BudgetsChecked int    `json:"budgets_checked"`
	BudgetsFixed   int    `json:"budgets_fixed"`
}

// APIError is a non-2xx response from the pipeline API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s: %s", e.Status, e.Code, e.Message)
}

// PipelineClient communicates with the walletwise pipeline API.
type PipelineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPipelineClient creates a new pipeline API client.
func NewPipelineClient(baseURL, apiKey string, httpClient *http.Client) *PipelineClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PipelineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// RunRecurring asks the server to materialize every rule due on or before
// date. A zero date lets the server use its own business date.
func (c *PipelineClient) RunRecurring(ctx context.Context, date time.Time) (*RunResult, error) {
	body := struct {
		Date string `json:"date,omitempty"`
	}{}
	if !date.IsZero() {
		body.Date = date.Format("2006-01-02")
	}

	var result RunResult
	if err := c.post(ctx, "/api/v1/pipeline/recurring/run", body, &result); err != nil {
		return nil, fmt.Errorf("running recurring rules: %w", err)
	}
	return &result, nil
}

// RecomputeBudgets rebuilds the spent totals of one wallet month.
func (c *PipelineClient) RecomputeBudgets(ctx context.Context, walletID string, month, year int) (*RecomputeResult, error) {
	body := struct {
		WalletID string `json:"wallet_id"`
		Month    int    `json:"month"`
		Year     int    `json:"year"`
	}{WalletID: walletID, Month: month, Year: year}

	var result RecomputeResult
	if err := c.post(ctx, "/api/v1/pipeline/budgets/recompute", body, &result); err != nil {
		return nil, fmt.Errorf("recomputing budgets: %w", err)
	}
	return &result, nil
}

func (c *PipelineClient) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
