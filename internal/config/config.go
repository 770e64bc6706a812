package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Addr   string // API bind address, e.g. ":3000"
	LogDir string // logs directory

	WebhookURL    string // empty disables notifications
	WebhookSecret string // optional signing secret

	CheckCron      string        // cron expression for scheduled cycles
	NotifyCooldown time.Duration // minimum time between two alerts
	ProbeTimeout   time.Duration // per store request

	GooglePlayPackage string // e.g. com.example.app
	AppStoreID        string // numeric iTunes id
	AppStoreCountry   string // store front used for the App Store link

	StatusBackend string // "file" or "memory"; DatabaseURL takes precedence
	StatusFile    string // path for the file backend
	DatabaseURL   string // postgres://... or sqlite://...

	AdminAPIKeys []string // guards /check when non-empty
	CheckRPM     int      // /check requests per minute per client
	CheckBurst   int
}

const (
	DefaultAddr      = ":3000"
	DefaultCheckCron = "0 */6 * * *"
)

// FromEnv reads the configuration from environment variables.
// Invalid numbers fall back to their defaults.
func FromEnv() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_ADDR", DefaultAddr)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("CHECK_CRON", DefaultCheckCron)
	v.SetDefault("APP_STORE_COUNTRY", "us")
	v.SetDefault("STATUS_BACKEND", "file")
	v.SetDefault("STATUS_FILE", "data/status.json")

	addr := strings.TrimSpace(v.GetString("API_ADDR"))
	// PORT wins so the service works on platforms that inject it
	if port := strings.TrimSpace(v.GetString("PORT")); port != "" {
		addr = ":" + port
	}

	return Config{
		Addr:   addr,
		LogDir: v.GetString("LOG_DIR"),

		WebhookURL:    strings.TrimSpace(v.GetString("WEBHOOK_URL")),
		WebhookSecret: strings.TrimSpace(v.GetString("WEBHOOK_SECRET")),

		CheckCron:      strings.TrimSpace(v.GetString("CHECK_CRON")),
		NotifyCooldown: millis(v, "NOTIFY_COOLDOWN_MS", time.Hour, true),
		ProbeTimeout:   millis(v, "PROBE_TIMEOUT_MS", 10*time.Second, false),

		GooglePlayPackage: strings.TrimSpace(v.GetString("GOOGLE_PLAY_PACKAGE")),
		AppStoreID:        strings.TrimSpace(v.GetString("APP_STORE_ID")),
		AppStoreCountry:   strings.ToLower(strings.TrimSpace(v.GetString("APP_STORE_COUNTRY"))),

		StatusBackend: strings.ToLower(strings.TrimSpace(v.GetString("STATUS_BACKEND"))),
		StatusFile:    v.GetString("STATUS_FILE"),
		DatabaseURL:   strings.TrimSpace(v.GetString("DATABASE_URL")),

		AdminAPIKeys: splitCSV(v.GetString("ADMIN_API_KEYS")),
		CheckRPM:     positiveInt(v, "CHECK_RPM", 30),
		CheckBurst:   positiveInt(v, "CHECK_BURST", 5),
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var err error
	if c.GooglePlayPackage == "" {
		err = multierr.Append(err, errors.New("GOOGLE_PLAY_PACKAGE is required"))
	}
	if c.AppStoreID == "" {
		err = multierr.Append(err, errors.New("APP_STORE_ID is required"))
	} else if _, perr := strconv.ParseUint(c.AppStoreID, 10, 64); perr != nil {
		err = multierr.Append(err, fmt.Errorf("APP_STORE_ID must be numeric, got %q", c.AppStoreID))
	}
	if c.CheckCron == "" {
		err = multierr.Append(err, errors.New("CHECK_CRON is empty"))
	}
	if c.WebhookURL != "" {
		u, perr := url.Parse(c.WebhookURL)
		if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("WEBHOOK_URL is not an http(s) URL: %q", c.WebhookURL))
		}
	}
	if c.DatabaseURL == "" {
		switch c.StatusBackend {
		case "file":
			if strings.TrimSpace(c.StatusFile) == "" {
				err = multierr.Append(err, errors.New("STATUS_FILE is empty"))
			}
		case "memory":
		default:
			err = multierr.Append(err, fmt.Errorf("STATUS_BACKEND must be file or memory, got %q", c.StatusBackend))
		}
	}
	return err
}

// NotificationsEnabled reports whether a webhook target is configured.
func (c Config) NotificationsEnabled() bool { return c.WebhookURL != "" }

func millis(v *viper.Viper, key string, def time.Duration, allowZero bool) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 || (ms == 0 && !allowZero) {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func positiveInt(v *viper.Viper, key string, def int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
