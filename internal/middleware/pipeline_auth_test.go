package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"walletwise/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func TestPipelineAuthMiddleware(t *testing.T) {
	const configured = "secret-pipeline-key"

	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid_key", configured: configured, header: configured, wantStatus: http.StatusOK},
		{name: "wrong_key", configured: configured, header: "wrong-key", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "missing_key", configured: configured, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "prefix_of_key", configured: configured, header: "secret-pipeline", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "different_case", configured: "Secret-Pipeline-Key", header: configured, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "not_configured", configured: "", header: "any-key", wantStatus: http.StatusServiceUnavailable, wantCode: "PIPELINE_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := gin.New()
			r.POST("/pipeline/recurring/run", PipelineAuthMiddleware(tt.configured), func(c *gin.Context) {
				reached = true
				c.JSON(http.StatusOK, gin.H{"rules_due": 0})
			})

			req := httptest.NewRequest(http.MethodPost, "/pipeline/recurring/run", http.NoBody)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if reached != (tt.wantCode == "") {
				t.Errorf("handler reached = %v", reached)
			}
			if tt.wantCode == "" {
				return
			}
			errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected error object in response")
			}
			if code, _ := errObj["code"].(string); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}
