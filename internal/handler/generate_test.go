package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/obdsuperstar/api/internal/service"
)

func setupGenerateApp(t *testing.T) *fiber.App {
	t.Helper()

	pipeline := service.NewPipelineService(service.NewSimulatedOrchestrator(0))
	h := NewGenerateHandler(pipeline, validator.New())

	app := fiber.New()
	app.Post("/api/generate/start", h.Start)
	app.Get("/api/generate/:jobId/status", h.Status)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func TestGenerateStart_Success(t *testing.T) {
	app := setupGenerateApp(t)

	body := `{"productText":"MegaData night bundle","country":"Ghana","telco":"MTN"}`
	resp := doRequest(t, app, http.MethodPost, "/api/generate/start", body)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	result := parseJSON(t, resp)
	jobID, _ := result["jobId"].(string)
	if len(jobID) != 8 {
		t.Errorf("expected 8-char jobId, got %q", jobID)
	}
	if result["status"] != "running" {
		t.Errorf("expected status running, got %v", result["status"])
	}
}

func TestGenerateStart_MissingFields(t *testing.T) {
	app := setupGenerateApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/generate/start", `{"country":"Ghana"}`)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", errObj["code"])
	}
	details := errObj["details"].(map[string]interface{})
	if details["ProductText"] != "required" || details["Telco"] != "required" {
		t.Errorf("expected per-field details, got %v", details)
	}
}

func TestGenerateStatus_BuffersProgress(t *testing.T) {
	app := setupGenerateApp(t)

	body := `{"productText":"MegaData night bundle","country":"Ghana","telco":"MTN"}`
	resp := doRequest(t, app, http.MethodPost, "/api/generate/start", body)
	jobID := parseJSON(t, resp)["jobId"].(string)

	// The zero-delay pipeline finishes almost immediately.
	deadline := time.Now().Add(2 * time.Second)
	var status map[string]interface{}
	for time.Now().Before(deadline) {
		resp = doRequest(t, app, http.MethodGet, "/api/generate/"+jobID+"/status", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		status = parseJSON(t, resp)
		if status["status"] == "done" {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if status["status"] != "done" {
		t.Fatalf("run never finished: %v", status["status"])
	}
	progress, _ := status["progress"].([]interface{})
	if len(progress) != 15 {
		t.Errorf("expected 15 buffered frames, got %d", len(progress))
	}
	if status["result"] == nil {
		t.Error("expected a result on the finished run")
	}
}

func TestGenerateStatus_NotFound(t *testing.T) {
	app := setupGenerateApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/generate/nope1234/status", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errObj["code"])
	}
}
