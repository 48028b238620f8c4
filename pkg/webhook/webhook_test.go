package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func newTestReport() *output.Report {
	return &output.Report{
		Summary: output.Summary{
			RunsAttempted:   4,
			RunsSucceeded:   3,
			VariantsWritten: 3,
			Warnings:        1,
		},
		Runs: []output.Run{
			{
				Dataset:         "original",
				Input:           "data/adult.data",
				Output:          "data/noisy_results_eps0.500000_original.txt",
				Status:          output.StatusOK,
				Count:           3,
				Average:         32,
				Sensitivity:     14.0 / 3.0,
				SensitivityKind: "local",
				Scale:           28.0 / 3.0,
				Epsilon:         0.5,
				Trials:          1000,
				Written:         1000,
			},
			{
				Dataset: "minus_youngest",
				Input:   "data/adult_minus_youngest.data",
				Status:  output.StatusWarning,
				Error:   "no qualifying records",
			},
		},
		Metadata: output.Metadata{
			RunID:      "run-1",
			ConfigFile: "test.yaml",
			Input:      "data/adult.data",
			DataDir:    "data",
			Seed:       42,
			AnalyzedAt: time.Now(),
			Duration:   time.Second,
		},
	}
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	// Verify payload is valid JSON containing expected fields
	var payload map[string]any
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Errorf("failed to parse received payload: %v", err)
	}

	if _, ok := payload["summary"]; !ok {
		t.Error("payload missing summary field")
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth, receivedRunID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		receivedRunID = r.Header.Get("X-Noisyavg-Run-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}

	if receivedRunID != "run-1" {
		t.Errorf("expected run id header, got %q", receivedRunID)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if resp.Success() {
		t.Error("expected failure, got success")
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure due to timeout")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: "://invalid-url",
	})

	if resp.Success() {
		t.Error("expected failure for invalid URL")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     "http://127.0.0.1:59999", // Unlikely to be listening
		Timeout: 100 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure for connection refused")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"201 Created", Response{StatusCode: 201}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestShouldFire(t *testing.T) {
	clean := newTestReport()
	clean.Summary.Warnings = 0
	warned := newTestReport()

	tests := []struct {
		trigger config.WebhookTrigger
		report  *output.Report
		want    bool
	}{
		{config.WebhookTriggerAlways, clean, true},
		{config.WebhookTriggerAlways, warned, true},
		{config.WebhookTriggerNever, warned, false},
		{config.WebhookTriggerOnWarnings, clean, false},
		{config.WebhookTriggerOnWarnings, warned, true},
		{"", warned, true},
	}

	for _, tt := range tests {
		if got := ShouldFire(tt.trigger, tt.report); got != tt.want {
			t.Errorf("ShouldFire(%q, warnings=%d) = %v, want %v",
				tt.trigger, tt.report.Summary.Warnings, got, tt.want)
		}
	}
}

func TestClient_Notify(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	core, logs := observer.New(zap.InfoLevel)
	client := NewClient(WithLogger(zap.New(core)))

	hooks := []config.WebhookConfig{
		{Name: "always", URL: server.URL, Trigger: config.WebhookTriggerAlways},
		{Name: "never", URL: server.URL, Trigger: config.WebhookTriggerNever},
		{URL: server.URL, Trigger: config.WebhookTriggerOnWarnings},
		{Name: "broken", URL: "http://127.0.0.1:59999", Trigger: config.WebhookTriggerAlways, Timeout: 100 * time.Millisecond},
	}

	responses := client.Notify(context.Background(), hooks, newTestReport())

	if len(responses) != 3 {
		t.Fatalf("Notify() sent %d webhooks, want 3", len(responses))
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server received %d requests, want 2", got)
	}
	if responses[1].Name != server.URL {
		t.Errorf("unnamed webhook should be named by URL, got %q", responses[1].Name)
	}
	if responses[2].Success() {
		t.Error("expected broken webhook to fail")
	}

	if n := logs.FilterMessage("webhook sent").Len(); n != 2 {
		t.Errorf("logged %d successful deliveries, want 2", n)
	}
	if n := logs.FilterMessage("webhook failed").Len(); n != 1 {
		t.Errorf("logged %d failed deliveries, want 1", n)
	}
}

func TestClient_Notify_NoWarnings(t *testing.T) {
	report := newTestReport()
	report.Summary.Warnings = 0

	hooks := []config.WebhookConfig{{URL: "http://127.0.0.1:59999", Trigger: config.WebhookTriggerOnWarnings}}

	if responses := NewClient().Notify(context.Background(), hooks, report); len(responses) != 0 {
		t.Errorf("Notify() sent %d webhooks, want 0", len(responses))
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c := NewClient(WithHTTPClient(hc))
	if c.httpClient != hc {
		t.Error("WithHTTPClient() did not replace the HTTP client")
	}
}
