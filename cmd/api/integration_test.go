package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"testing"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// INTEGRATION TEST SUITE
//
// These tests validate the service end-to-end:
//
//   Client → HTTP API → identity → assignment → store → report
//
// The service must already be running (for example via docker compose) and
// BASE_URL must point at it, e.g. BASE_URL=http://localhost:8080.
// Without BASE_URL the suite is skipped.
////////////////////////////////////////////////////////////////////////////////

func baseURL(t *testing.T) string {
	t.Helper()
	v := os.Getenv("BASE_URL")
	if v == "" {
		t.Skip("BASE_URL not set; integration suite needs a running service")
	}
	return v
}

// unique generates a unique string so tests never collide with previous runs.
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// waitReady polls /ready until DB + server are ready.
func waitReady(t *testing.T) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL(t) + "/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(300 * time.Millisecond)
	}

	t.Fatalf("service not ready after 30s")
}

// httpGet performs a GET with the given client identity headers.
func httpGet(t *testing.T, path string, headers map[string]string) (int, []byte) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, baseURL(t)+path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

// postJSON performs a POST with a JSON body.
func postJSON(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	b, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, baseURL(t)+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

var variantAttr = regexp.MustCompile(`data-variant="([^"]+)"`)

func pageVariant(t *testing.T, body []byte) string {
	t.Helper()
	m := variantAttr.FindSubmatch(body)
	if m == nil {
		t.Fatalf("variant not found in page")
	}
	return string(m[1])
}

type resultsResponse map[string]struct {
	Visitors    int64 `json:"visitors"`
	Conversions int64 `json:"conversions"`
}

func fetchResults(t *testing.T) resultsResponse {
	t.Helper()
	s, b := httpGet(t, "/ab-test-results", map[string]string{"Accept": "application/json"})
	if s != http.StatusOK {
		t.Fatalf("results expected 200 got %d", s)
	}
	var r resultsResponse
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("invalid results JSON: %v", err)
	}
	return r
}

// Health endpoint = liveness check (server process running).
func TestHealth_ReturnsOK(t *testing.T) {
	s, _ := httpGet(t, "/health", nil)
	if s != http.StatusOK {
		t.Fatalf("health expected 200 got %d", s)
	}
}

// A returning visitor always sees the variant from the first visit.
func TestLanding_SameVisitorSameVariant(t *testing.T) {
	waitReady(t)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.10", "User-Agent": unique("ua")}
	_, first := httpGet(t, "/", headers)
	_, second := httpGet(t, "/", headers)

	if pageVariant(t, first) != pageVariant(t, second) {
		t.Fatal("returning visitor switched variant")
	}
}

// Incomplete conversion payloads are refused with success=false and HTTP 200.
func TestTrackConversion_RejectsMissingFields(t *testing.T) {
	waitReady(t)

	s, b := postJSON(t, "/track-conversion", map[string]any{"variant": "A"})
	if s != http.StatusOK {
		t.Fatalf("expected 200 got %d", s)
	}
	var r struct {
		Success bool `json:"success"`
	}
	_ = json.Unmarshal(b, &r)
	if r.Success {
		t.Fatal("expected success=false")
	}
}

// Every accepted conversion shows up in the report.
func TestTrackConversion_IncreasesReportedConversions(t *testing.T) {
	waitReady(t)

	before := fetchResults(t)["B"].Conversions
	postJSON(t, "/track-conversion", map[string]any{"visitor_id": unique("v"), "variant": "B"})
	after := fetchResults(t)["B"].Conversions

	if after != before+1 {
		t.Fatalf("conversions B: before %d after %d", before, after)
	}
}
