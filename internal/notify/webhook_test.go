package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		GooglePlayRemoved: true,
		DetectedAt:        time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC),
		GooglePlayURL:     "https://play.google.com/store/apps/details?id=com.example.app",
		AppStoreURL:       "https://apps.apple.com/us/app/id123",
	}
}

func TestSign_KnownVector(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte("1000\ns"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := Sign("s", 1000); got != want {
		t.Fatalf("Sign=%q want %q", got, want)
	}

	u := SignedURL("https://hooks.example.com/send", "s", 1000)
	if !strings.Contains(u, "timestamp=1000&sign="+url.QueryEscape(want)) {
		t.Fatalf("signed url missing params: %s", u)
	}
	if !strings.HasPrefix(u, "https://hooks.example.com/send?timestamp=") {
		t.Fatalf("expected ? separator: %s", u)
	}
	if u2 := SignedURL("https://hooks.example.com/send?access_token=t", "s", 1000); !strings.Contains(u2, "access_token=t&timestamp=1000&sign=") {
		t.Fatalf("expected & separator keeping token: %s", u2)
	}
}

func TestWebhook_OK_SignedPayload(t *testing.T) {
	var (
		gotBody  textPayload
		gotQuery url.Values
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL+"?access_token=abc", "s")
	if wh == nil {
		t.Fatal("expected webhook client")
	}
	wh.now = func() time.Time { return time.UnixMilli(1000) }

	if err := wh.Notify(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("notify err: %v", err)
	}
	if gotBody.MsgType != "text" {
		t.Fatalf("unexpected msgtype %q", gotBody.MsgType)
	}
	c := gotBody.Text.Content
	if !strings.Contains(c, "Removed from: Google Play\n") || strings.Contains(c, "Removed from: Google Play, App Store") {
		t.Fatalf("content should name only Google Play: %q", c)
	}
	if !strings.Contains(c, "apps.apple.com") || !strings.Contains(c, "play.google.com") {
		t.Fatalf("content should link both store pages: %q", c)
	}
	if gotQuery.Get("timestamp") != "1000" || gotQuery.Get("sign") != Sign("s", 1000) {
		t.Fatalf("signature params wrong: %v", gotQuery)
	}
	if gotQuery.Get("access_token") != "abc" {
		t.Fatalf("existing query lost: %v", gotQuery)
	}
}

func TestWebhook_NoSecretNoSignature(t *testing.T) {
	var rawQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(204)
	}))
	defer ts.Close()

	if err := NewWebhook(ts.URL, "").Notify(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("notify err: %v", err)
	}
	if rawQuery != "" {
		t.Fatalf("expected no query params without a secret, got %q", rawQuery)
	}
}

func TestWebhook_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewWebhook(ts.URL, "").Notify(context.Background(), sampleEvent())
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError on non-2xx, got %v", err)
	}
	if de.StatusCode != 500 {
		t.Fatalf("want status 500, got %d", de.StatusCode)
	}
}

func TestWebhook_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	err := NewWebhook(addr, "").Notify(context.Background(), sampleEvent())
	var de *DeliveryError
	if !errors.As(err, &de) || de.StatusCode != 0 {
		t.Fatalf("expected transport DeliveryError, got %v", err)
	}
}

func TestNewWebhook_EmptyURLDisabled(t *testing.T) {
	if NewWebhook("", "s") != nil {
		t.Fatal("empty URL should disable the webhook")
	}
}

func TestEvent_TextBothStores(t *testing.T) {
	ev := sampleEvent()
	ev.AppStoreRemoved = true
	if !strings.Contains(ev.Text(), "Removed from: Google Play, App Store") {
		t.Fatalf("unexpected text: %q", ev.Text())
	}
	if !strings.Contains(ev.Text(), "2025-05-04T03:02:01Z") {
		t.Fatalf("missing detection time: %q", ev.Text())
	}
}
