package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Event describes one removal alert.
type Event struct {
	GooglePlayRemoved bool
	AppStoreRemoved   bool
	DetectedAt        time.Time
	GooglePlayURL     string
	AppStoreURL       string
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// DeliveryError is returned when the webhook could not be reached or
// answered with a non-2xx status.
type DeliveryError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook delivery: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook delivery: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Title is the headline of an alert.
func (ev Event) Title() string {
	return "🔴 App removed from store"
}

// Text renders the human-readable alert body.
func (ev Event) Text() string {
	var stores []string
	if ev.GooglePlayRemoved {
		stores = append(stores, "Google Play")
	}
	if ev.AppStoreRemoved {
		stores = append(stores, "App Store")
	}
	return fmt.Sprintf(
		"%s\nRemoved from: %s\nDetected: %s\nGoogle Play: %s\nApp Store: %s",
		ev.Title(), strings.Join(stores, ", "), ev.DetectedAt.UTC().Format(time.RFC3339),
		ev.GooglePlayURL, ev.AppStoreURL,
	)
}
