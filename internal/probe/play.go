package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hamed0406/storewatch/internal/domain"
)

const (
	StoreGooglePlay = "google_play"

	DefaultDetailsURL = "https://play.google.com/store/apps/details"
)

// PlayProbe fetches the public Google Play details page for a package.
// The app is listed iff the final response (after redirects) is exactly 200.
type PlayProbe struct {
	Package    string
	DetailsURL string

	checker *HTTPChecker
	dns     bool
}

func NewPlayProbe(pkg string, opts Options) *PlayProbe {
	return &PlayProbe{
		Package:    pkg,
		DetailsURL: DefaultDetailsURL,
		checker:    NewHTTPChecker(opts.Timeout),
		dns:        opts.DiagnoseDNS,
	}
}

func (p *PlayProbe) Name() string { return StoreGooglePlay }

func (p *PlayProbe) StoreURL() string {
	return DefaultDetailsURL + "?id=" + url.QueryEscape(p.Package)
}

func (p *PlayProbe) Probe(ctx context.Context) Outcome {
	target := p.DetailsURL + "?id=" + url.QueryEscape(p.Package) + "&hl=en"
	// the verdict is the status code; the page itself is never read
	resp, err := p.checker.get(ctx, target, false)
	if err != nil {
		return failOpen(StoreGooglePlay, resp.StatusCode, transportReason(ctx, p.dns, target, err), resp.LatencyMS)
	}

	out := Outcome{
		Store:      StoreGooglePlay,
		Listing:    domain.NotListed,
		StatusCode: resp.StatusCode,
		Reason:     fmt.Sprintf("details page HTTP %d", resp.StatusCode),
		LatencyMS:  resp.LatencyMS,
	}
	if resp.StatusCode == http.StatusOK {
		out.Listing = domain.Listed
	}
	return out
}
