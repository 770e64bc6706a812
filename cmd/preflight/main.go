// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/storewatch/internal/config"
)

func main() {
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		os.Exit(1)
	}

	ok("GOOGLE_PLAY_PACKAGE=" + cfg.GooglePlayPackage)
	ok(fmt.Sprintf("APP_STORE_ID=%s (%s)", cfg.AppStoreID, cfg.AppStoreCountry))
	ok("CHECK_CRON=" + cfg.CheckCron)
	ok("API_ADDR=" + cfg.Addr)

	if cfg.NotificationsEnabled() {
		ok("WEBHOOK_URL present")
		if cfg.WebhookSecret == "" {
			warn("WEBHOOK_SECRET empty; webhook calls will be unsigned.")
		}
	} else {
		warn("WEBHOOK_URL empty; removals will be logged but nobody is notified.")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS empty; anyone who can reach the API can trigger /check.")
	}
	if raw := os.Getenv("ADMIN_API_KEYS"); strings.Contains(raw, " ") {
		warn("ADMIN_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
	}

	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "sqlite://"):
		ok("status backend: sqlite")
	case cfg.DatabaseURL != "":
		ok("status backend: postgres")
	default:
		ok("status backend: " + cfg.StatusBackend)
	}

	ok("preflight passed")
}
