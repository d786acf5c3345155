package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// ParseJSON decodes the response body into the target
func ParseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}

// AssertErrorEnvelope verifies the standard error envelope shape
func AssertErrorEnvelope(t *testing.T, resp *http.Response, expectedStatus int) {
	t.Helper()
	AssertStatus(t, resp, expectedStatus)

	var envelope map[string]interface{}
	ParseJSON(t, resp, &envelope)

	if ok, present := envelope["ok"].(bool); !present || ok {
		t.Errorf("Expected ok=false in error envelope, got %v", envelope["ok"])
	}
	if envelope["message"] == nil || envelope["message"] == "" {
		t.Error("Expected a message in the error envelope")
	}
}
