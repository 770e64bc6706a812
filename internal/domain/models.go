package domain

import "time"

// Listing is the observed availability of the app on one store.
type Listing int

const (
	Listed Listing = iota
	NotListed
)

func (l Listing) String() string {
	if l == NotListed {
		return "not_listed"
	}
	return "listed"
}

// Bool reports whether the app is listed.
func (l Listing) Bool() bool { return l == Listed }

// AppStatus is the persisted last-known state of both stores.
type AppStatus struct {
	GooglePlay     bool       `json:"listed_on_google_play"`
	AppStore       bool       `json:"listed_on_app_store"`
	LastCheckedAt  time.Time  `json:"last_checked_at"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
}

// DefaultStatus is used when nothing was persisted yet: both listed, never
// checked. Assuming listed means a first run never raises an alarm.
func DefaultStatus() AppStatus {
	return AppStatus{GooglePlay: true, AppStore: true}
}
