package probe

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Options tune both store probes.
type Options struct {
	Timeout time.Duration
	// DiagnoseDNS resolves the store host after a transport failure and
	// appends the DNS class to the outcome reason.
	DiagnoseDNS bool
}

func transportReason(ctx context.Context, diagnose bool, target string, err error) string {
	reason := "http_error: " + err.Error()
	if !diagnose {
		return reason
	}
	dns := CheckDNS(context.WithoutCancel(ctx), extractHost(target))
	return fmt.Sprintf("%s dns=%s", reason, dns.Class)
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
