package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Webhook posts alerts to a chat-robot style webhook. When Secret is set
// every request URL carries a timestamp and an HMAC-SHA256 signature.
type Webhook struct {
	URL    string
	Secret string
	Client *http.Client

	now func() time.Time
}

// NewWebhook returns nil for an empty URL: delivery is disabled.
func NewWebhook(rawURL, secret string) *Webhook {
	if rawURL == "" {
		return nil
	}
	return &Webhook{
		URL:    rawURL,
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

type textPayload struct {
	MsgType string      `json:"msgtype"`
	Text    textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(textPayload{MsgType: "text", Text: textContent{Content: ev.Text()}})
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("encode payload: %w", err)}
	}

	target := w.URL
	if w.Secret != "" {
		target = SignedURL(w.URL, w.Secret, w.now().UnixMilli())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode/100 != 2 {
		return &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("non-2xx: %s", resp.Status)}
	}
	return nil
}

// Sign computes base64(HMAC-SHA256(key=secret, "{timestamp}\n{secret}")).
func Sign(secret string, timestampMillis int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestampMillis, 10) + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignedURL appends timestamp and sign query parameters to raw, keeping
// any query it already has (e.g. an access token).
func SignedURL(raw, secret string, timestampMillis int64) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "timestamp=" + strconv.FormatInt(timestampMillis, 10) +
		"&sign=" + url.QueryEscape(Sign(secret, timestampMillis))
}
