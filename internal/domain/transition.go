package domain

import "time"

// DefaultCooldown is the minimum time between two delivered alerts.
const DefaultCooldown = time.Hour

// Transition describes which stores went from listed to not listed
// between the previous and the current cycle.
type Transition struct {
	GooglePlayRemoved bool
	AppStoreRemoved   bool
}

// Any reports whether at least one store dropped the app.
func (t Transition) Any() bool { return t.GooglePlayRemoved || t.AppStoreRemoved }

// Diff compares the previous status with the current observations.
// Only a listed -> not listed edge counts; a relisting is not a removal.
func Diff(prev AppStatus, googlePlay, appStore Listing) Transition {
	return Transition{
		GooglePlayRemoved: prev.GooglePlay && googlePlay == NotListed,
		AppStoreRemoved:   prev.AppStore && appStore == NotListed,
	}
}

// NotifyDue reports whether the cooldown since the last delivered alert
// has elapsed. A nil last means nothing was ever sent.
func NotifyDue(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) > cooldown
}
