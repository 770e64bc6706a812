package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS classes attached to fail-open reasons as "dns=CLASS".
const (
	DNSResolves    = "RESOLVES"
	DNSNoAddress   = "NO_A_RECORD"
	DNSNXDomain    = "NXDOMAIN"
	DNSUnreachable = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

var dnsTimeout = 3 * time.Second

type resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DNSStatus describes how a store host resolved after a failed request.
type DNSStatus struct {
	Host  string
	Class string
	Addrs int
	Err   string
}

// CheckDNS classifies how a store host resolves. It explains fail-open
// outcomes and never decides a listing.
func CheckDNS(ctx context.Context, host string) DNSStatus {
	return classifyDNS(ctx, net.DefaultResolver, host)
}

func classifyDNS(ctx context.Context, r resolver, host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") {
		s.Class = DNSInvalidName
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := r.LookupIPAddr(ctx, s.Host)
	if err == nil && len(addrs) > 0 {
		s.Class = DNSResolves
		s.Addrs = len(addrs)
		return s
	}
	if err != nil {
		s.Err = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) && !de.IsNotFound {
			s.Class = DNSUnreachable
			return s
		}
	}

	// name has no address; a delegated zone means the record is missing,
	// otherwise the name does not exist at all
	if ns, err := r.LookupNS(ctx, s.Host); err == nil && len(ns) > 0 {
		s.Class = DNSNoAddress
	} else {
		s.Class = DNSNXDomain
	}
	return s
}
