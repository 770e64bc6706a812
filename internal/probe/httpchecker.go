package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MobileUserAgent is sent on every store request; store front-ends reject
// clients that do not look like a browser.
const MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"

const DefaultTimeout = 10 * time.Second

// maxBody bounds how much of a store response is read.
const maxBody = 1 << 20

// HTTPChecker performs the GET requests shared by the store probes.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

type response struct {
	StatusCode int
	Body       []byte
	LatencyMS  float64
}

// get fetches target, following redirects. A non-nil error means no usable
// response was received. With readBody false the body is discarded unread
// and only the status counts.
func (h *HTTPChecker) get(ctx context.Context, target string, readBody bool) (response, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", MobileUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return response{LatencyMS: latency}, err
	}
	defer resp.Body.Close()

	if !readBody {
		return response{StatusCode: resp.StatusCode, LatencyMS: latency}, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{StatusCode: resp.StatusCode, LatencyMS: latency}, fmt.Errorf("read body: %w", err)
	}
	return response{StatusCode: resp.StatusCode, Body: body, LatencyMS: latency}, nil
}
