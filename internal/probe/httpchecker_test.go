package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/storewatch/internal/domain"
)

func appStoreProbe(url string, timeout time.Duration) *AppStoreProbe {
	p := NewAppStoreProbe("123456", "us", Options{Timeout: timeout})
	p.LookupURL = url
	return p
}

func playProbe(url string, timeout time.Duration) *PlayProbe {
	p := NewPlayProbe("com.example.app", Options{Timeout: timeout})
	p.DetailsURL = url
	return p
}

func TestAppStoreProbe_ListedWhenExactlyOneResult(t *testing.T) {
	var gotUA, gotID string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotID = r.URL.Query().Get("id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultCount":1,"results":[{"trackId":123456}]}`))
	}))
	defer s.Close()

	out := appStoreProbe(s.URL, 2*time.Second).Probe(context.Background())
	if out.Listing != domain.Listed || out.FailOpen {
		t.Fatalf("want listed, got %+v", out)
	}
	if gotID != "123456" {
		t.Fatalf("want id=123456, got %q", gotID)
	}
	if !strings.Contains(gotUA, "iPhone") {
		t.Fatalf("want mobile user agent, got %q", gotUA)
	}
}

func TestAppStoreProbe_LooksUpConfiguredStorefront(t *testing.T) {
	var gotCountry string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCountry = r.URL.Query().Get("country")
		w.Write([]byte(`{"resultCount":1}`))
	}))
	defer s.Close()

	p := NewAppStoreProbe("123456", "de", Options{Timeout: 2 * time.Second})
	p.LookupURL = s.URL
	if out := p.Probe(context.Background()); out.Listing != domain.Listed {
		t.Fatalf("want listed, got %+v", out)
	}
	if gotCountry != "de" {
		t.Fatalf("want country=de in lookup, got %q", gotCountry)
	}
	if !strings.Contains(p.StoreURL(), "/de/app/") {
		t.Fatalf("store link should use the same storefront: %s", p.StoreURL())
	}
}

func TestAppStoreProbe_NotListedOnZeroOrMany(t *testing.T) {
	for _, body := range []string{`{"resultCount":0,"results":[]}`, `{"resultCount":2}`} {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		out := appStoreProbe(s.URL, 2*time.Second).Probe(context.Background())
		s.Close()
		if out.Listing != domain.NotListed || out.FailOpen {
			t.Fatalf("body %s: want not listed, got %+v", body, out)
		}
	}
}

func TestAppStoreProbe_FailOpen(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"500": func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", 500) },
		"404": func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		},
	}
	for name, h := range cases {
		s := httptest.NewServer(h)
		out := appStoreProbe(s.URL, 2*time.Second).Probe(context.Background())
		s.Close()
		if out.Listing != domain.Listed || !out.FailOpen {
			t.Fatalf("%s: want fail-open listed, got %+v", name, out)
		}
		if out.Reason == "" {
			t.Fatalf("%s: want a reason", name)
		}
	}
}

func TestPlayProbe_Status(t *testing.T) {
	cases := []struct {
		status int
		want   domain.Listing
	}{
		{200, domain.Listed},
		{404, domain.NotListed},
		{500, domain.NotListed},
		{204, domain.NotListed},
	}
	for _, c := range cases {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("id") != "com.example.app" {
				t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
			}
			w.WriteHeader(c.status)
		}))
		out := playProbe(s.URL, 2*time.Second).Probe(context.Background())
		s.Close()
		if out.Listing != c.want || out.FailOpen {
			t.Fatalf("status %d: want %s, got %+v", c.status, c.want, out)
		}
		if out.StatusCode != c.status {
			t.Fatalf("want status %d, got %d", c.status, out.StatusCode)
		}
	}
}

func TestPlayProbe_TruncatedBodyKeepsVerdict(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		// promise more bytes than are sent, then drop the connection
		buf.WriteString("HTTP/1.1 404 Not Found\r\nContent-Length: 4096\r\n\r\nshort")
		buf.Flush()
	}))
	defer s.Close()

	out := playProbe(s.URL, 2*time.Second).Probe(context.Background())
	if out.Listing != domain.NotListed || out.FailOpen || out.StatusCode != 404 {
		t.Fatalf("want not listed on 404 despite short body, got %+v", out)
	}
}

func TestPlayProbe_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/store/apps/details", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final?"+r.URL.RawQuery, http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.UserAgent(), "Mobile") {
			t.Errorf("redirected request lost the user agent: %q", r.UserAgent())
		}
		w.WriteHeader(http.StatusOK)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	out := playProbe(s.URL+"/store/apps/details", 2*time.Second).Probe(context.Background())
	if out.Listing != domain.Listed {
		t.Fatalf("want listed after redirect, got %+v", out)
	}
}

func TestProbes_TimeoutFailsOpen(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(404)
	}))
	defer s.Close()

	for _, p := range []Prober{
		appStoreProbe(s.URL, 50*time.Millisecond),
		playProbe(s.URL, 50*time.Millisecond),
	} {
		out := p.Probe(context.Background())
		if out.Listing != domain.Listed || !out.FailOpen {
			t.Fatalf("%s: want fail-open on timeout, got %+v", p.Name(), out)
		}
		if out.StatusCode != 0 {
			t.Fatalf("%s: want status 0 on transport error, got %d", p.Name(), out.StatusCode)
		}
		if !strings.HasPrefix(out.Reason, "http_error") {
			t.Fatalf("%s: unexpected reason %q", p.Name(), out.Reason)
		}
	}
}

func TestProbes_StoreURLs(t *testing.T) {
	if got := NewAppStoreProbe("42", "", Options{}).StoreURL(); got != "https://apps.apple.com/us/app/id42" {
		t.Fatalf("app store url: %s", got)
	}
	if got := NewPlayProbe("com.x.y", Options{}).StoreURL(); got != "https://play.google.com/store/apps/details?id=com.x.y" {
		t.Fatalf("play url: %s", got)
	}
}
