package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
	"github.com/hamed0406/storewatch/internal/repo"
)

// ---- test helpers ----

type fakeMonitor struct {
	status   domain.AppStatus
	err      error
	checkErr error
	checks   atomic.Int32
}

func (f *fakeMonitor) Status(context.Context) (domain.AppStatus, error) {
	return f.status, f.err
}

func (f *fakeMonitor) RunCheckCycle(context.Context) (domain.AppStatus, error) {
	f.checks.Add(1)
	st := f.status
	st.LastCheckedAt = st.LastCheckedAt.Add(time.Minute)
	return st, f.checkErr
}

func setupRouter(t *testing.T, m Monitor, opts Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(zap.NewNop(), m, opts).Router())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url, apiKey string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var checkedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// ---- tests ----

func TestStatus_ReturnsPersistedWithoutProbing(t *testing.T) {
	m := &fakeMonitor{status: domain.AppStatus{GooglePlay: true, AppStore: false, LastCheckedAt: checkedAt}}
	ts := setupRouter(t, m, Options{})

	resp := get(t, ts.URL+"/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got domain.AppStatus
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.GooglePlay || got.AppStore || !got.LastCheckedAt.Equal(checkedAt) {
		t.Fatalf("unexpected status %+v", got)
	}
	if m.checks.Load() != 0 {
		t.Fatal("/status must not trigger a check")
	}
}

func TestStatus_ReadFailureIs500(t *testing.T) {
	m := &fakeMonitor{err: &repo.StorageError{Op: "load", Err: errors.New("db down")}}
	ts := setupRouter(t, m, Options{})

	resp := get(t, ts.URL+"/status", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] == "" {
		t.Fatalf("want error body, got %v", body)
	}
}

func TestCheck_RunsCycleAndReturnsStatus(t *testing.T) {
	m := &fakeMonitor{status: domain.AppStatus{GooglePlay: true, AppStore: true, LastCheckedAt: checkedAt}}
	ts := setupRouter(t, m, Options{})

	resp := get(t, ts.URL+"/check", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got domain.AppStatus
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if !got.LastCheckedAt.Equal(checkedAt.Add(time.Minute)) {
		t.Fatalf("expected fresh status from the cycle, got %+v", got)
	}
	if m.checks.Load() != 1 {
		t.Fatalf("want 1 cycle, got %d", m.checks.Load())
	}
}

func TestCheck_CycleFailureIs500(t *testing.T) {
	m := &fakeMonitor{checkErr: &repo.StorageError{Op: "save", Err: errors.New("read-only fs")}}
	ts := setupRouter(t, m, Options{})

	if resp := get(t, ts.URL+"/check", ""); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", resp.StatusCode)
	}
}

func TestCheck_AdminKeyRequiredWhenConfigured(t *testing.T) {
	m := &fakeMonitor{}
	ts := setupRouter(t, m, Options{AdminKeys: []string{"adm_test"}})

	if resp := get(t, ts.URL+"/check", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing key: want 401, got %d", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/check", "nope"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong key: want 403, got %d", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/check", "adm_test"); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin key: want 200, got %d", resp.StatusCode)
	}
	if m.checks.Load() != 1 {
		t.Fatalf("only the authorized request should run a cycle, got %d", m.checks.Load())
	}
	// reads stay open
	if resp := get(t, ts.URL+"/status", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("/status should not need a key, got %d", resp.StatusCode)
	}
}

func TestCheck_RateLimited(t *testing.T) {
	m := &fakeMonitor{}
	ts := setupRouter(t, m, Options{CheckRPM: 1, CheckBurst: 1})

	if resp := get(t, ts.URL+"/check", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("first: want 200, got %d", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/check", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second: want 429, got %d", resp.StatusCode)
	}
}
